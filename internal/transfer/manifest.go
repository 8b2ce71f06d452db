package transfer

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/ryanmoran/mt32pi-updater/internal"
)

// ManifestEntry is one regular file of a staged release.
type ManifestEntry struct {
	LocalPath  string
	RelPath    string
	RemotePath string
	Size       int64

	// Ignored entries are reported but never uploaded.
	Ignored bool
}

// BuildManifest lists every regular file under localRoot in lexical order,
// marking those matched by ignore.
func BuildManifest(localRoot string, ignore internal.IgnoreList) ([]ManifestEntry, error) {
	var manifest []ManifestEntry

	err := filepath.WalkDir(localRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(localRoot, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		relPath = filepath.ToSlash(relPath)

		manifest = append(manifest, ManifestEntry{
			LocalPath:  path,
			RelPath:    relPath,
			RemotePath: RemotePath(relPath),
			Size:       info.Size(),
			Ignored:    ignore.Matches(relPath),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files under %q: %w", localRoot, err)
	}

	return manifest, nil
}
