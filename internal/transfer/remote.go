package transfer

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/ryanmoran/mt32pi-updater/internal/ftp"
)

// RemoteRoot is where the mt32-pi FTP server exposes the SD card.
const RemoteRoot = "/SD"

// Names of the files kept across an update.
const (
	MainConfigFile = "mt32-pi.cfg"
	BootConfigFile = "config.txt"
	WiFiConfigFile = "wpa_supplicant.conf"
)

// LegacyFiles are fetched from the device before a release is installed.
var LegacyFiles = []string{MainConfigFile, BootConfigFile, WiFiConfigFile}

// Remote is the device side of a transfer. *ftp.Session implements it.
type Remote interface {
	Retrieve(ctx context.Context, remotePath string, sink io.Writer, onRetry ftp.RetryHook) error
	Store(ctx context.Context, remotePath string, source io.Reader, onProgress ftp.ProgressFunc, onRetry ftp.RetryHook) error
	MakeDir(ctx context.Context, remotePath string) error
}

// RemotePath maps a slash separated path relative to the SD card root onto
// the server.
func RemotePath(relPath string) string {
	return path.Join(RemoteRoot, strings.TrimPrefix(relPath, "/"))
}
