package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/ryanmoran/mt32pi-updater/internal"
	"github.com/ryanmoran/mt32pi-updater/internal/ftp"
	"github.com/ryanmoran/mt32pi-updater/internal/logging"
)

// UploadResult lists the files of an upload by relative path.
type UploadResult struct {
	Uploaded []string
	Skipped  []string
}

// UploadTree pushes every file under localRoot to the same relative path
// beneath RemoteRoot. Files matched by ignore are skipped. Remote
// directories are created on first use. The server refusing to create one
// is not an error since it usually already exists, but losing the
// connection is. The first file that cannot be stored ends the upload.
func UploadTree(ctx context.Context, remote Remote, localRoot string, ignore internal.IgnoreList, w internal.Writer) (UploadResult, error) {
	var result UploadResult

	manifest, err := BuildManifest(localRoot, ignore)
	if err != nil {
		return result, err
	}

	logger := logging.For("transfer")
	created := make(map[string]bool)

	for _, entry := range manifest {
		w.Status(fmt.Sprintf("Uploading %s...", internal.Highlight(entry.RelPath)))

		if entry.Ignored {
			w.Result("SKIPPED!", internal.ColorWarning)
			result.Skipped = append(result.Skipped, entry.RelPath)
			continue
		}

		for _, dir := range parentDirs(entry.RelPath) {
			if created[dir] {
				continue
			}
			created[dir] = true
			if err := remote.MakeDir(ctx, RemotePath(dir)); err != nil {
				if !ftp.IsRefusal(err) {
					w.Result("FAILED!", internal.ColorFailure)
					return result, fmt.Errorf("failed to create remote directory %q: %w", dir, err)
				}
				logger.Debug().Err(err).Str("dir", dir).Msg("remote directory not created")
			}
		}

		if err := uploadFile(ctx, remote, entry, w); err != nil {
			w.Result("FAILED!", internal.ColorFailure)
			return result, fmt.Errorf("failed to upload %q: %w", entry.RelPath, err)
		}

		w.Result("DONE!", internal.ColorOK)
		result.Uploaded = append(result.Uploaded, entry.RelPath)
	}

	return result, nil
}

func uploadFile(ctx context.Context, remote Remote, entry ManifestEntry, w internal.Writer) error {
	file, err := os.Open(entry.LocalPath)
	if err != nil {
		return err
	}
	defer file.Close()

	var transferred int64
	onProgress := func(n int) {
		transferred += int64(n)
		if entry.Size > 0 {
			w.Progress(float64(transferred) * 100 / float64(entry.Size))
		}
	}
	onRetry := func(int) error {
		transferred = 0
		_, err := file.Seek(0, io.SeekStart)
		return err
	}

	return remote.Store(ctx, entry.RemotePath, file, onProgress, onRetry)
}

// parentDirs returns the ancestors of a slash separated relative path,
// outermost first.
func parentDirs(relPath string) []string {
	var dirs []string
	for dir := path.Dir(relPath); dir != "." && dir != "/"; dir = path.Dir(dir) {
		dirs = append([]string{dir}, dirs...)
	}
	return dirs
}
