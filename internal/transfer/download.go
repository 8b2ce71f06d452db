package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ryanmoran/mt32pi-updater/internal"
	"github.com/ryanmoran/mt32pi-updater/internal/ftp"
)

// Outcome is the result of fetching one legacy file.
type Outcome int

const (
	Retrieved Outcome = iota + 1
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Retrieved:
		return "retrieved"
	case NotFound:
		return "not found"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// DownloadLegacyFiles fetches each named file from the SD card root into
// destDir. A file missing on the device is reported and skipped, since a
// fresh install has none of them. Any other failure stops the download.
func DownloadLegacyFiles(ctx context.Context, remote Remote, names []string, destDir string, w internal.Writer) (map[string]Outcome, error) {
	outcomes := make(map[string]Outcome, len(names))

	for _, name := range names {
		w.Status(fmt.Sprintf("Retrieving %s...", internal.Highlight(name)))

		outcome, err := retrieveFile(ctx, remote, RemotePath(name), filepath.Join(destDir, name))
		if err != nil {
			w.Result("FAILED!", internal.ColorFailure)
			return outcomes, fmt.Errorf("failed to retrieve %q from the device: %w", name, err)
		}

		outcomes[name] = outcome
		if outcome == NotFound {
			w.Result("NOT FOUND!", internal.ColorWarning)
		} else {
			w.Result("DONE!", internal.ColorOK)
		}
	}

	return outcomes, nil
}

func retrieveFile(ctx context.Context, remote Remote, remotePath, localPath string) (Outcome, error) {
	file, err := os.Create(localPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %q: %w", localPath, err)
	}

	err = remote.Retrieve(ctx, remotePath, file, func(int) error {
		if err := file.Truncate(0); err != nil {
			return err
		}
		_, err := file.Seek(0, io.SeekStart)
		return err
	})
	closeErr := file.Close()

	if err != nil {
		_ = os.Remove(localPath)
		if errors.Is(err, ftp.ErrNotFound) {
			return NotFound, nil
		}
		return 0, err
	}
	if closeErr != nil {
		return 0, fmt.Errorf("failed to write %q: %w", localPath, closeErr)
	}

	return Retrieved, nil
}
