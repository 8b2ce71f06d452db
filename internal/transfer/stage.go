package transfer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// NewSuffix marks a shipped file that was set aside in favour of the copy
// retrieved from the device.
const NewSuffix = ".new"

// BackupSuffix marks the retrieved main configuration once it has been
// replaced by the merged one.
const BackupSuffix = ".bak"

// StageRelease copies the extracted release at src into dst, which is
// created when missing. Symlinks are skipped.
func StageRelease(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to open release directory %q: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("release path %q is not a directory", src)
	}

	return filepath.WalkDir(src, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		dstPath := filepath.Join(dst, relPath)

		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		if entry.IsDir() {
			return os.MkdirAll(dstPath, info.Mode().Perm()|0700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(path, dstPath, info.Mode().Perm())
	})
}

// PreserveFile moves a file retrieved from the device into the install
// directory under name. A shipped file of the same name is kept alongside
// with NewSuffix appended so the user can compare the two.
func PreserveFile(retrievedPath, installDir, name string) error {
	shipped := filepath.Join(installDir, name)

	if _, err := os.Stat(shipped); err == nil {
		if err := os.Rename(shipped, shipped+NewSuffix); err != nil {
			return fmt.Errorf("failed to set aside shipped %q: %w", name, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to inspect shipped %q: %w", name, err)
	}

	if err := moveFile(retrievedPath, shipped); err != nil {
		return fmt.Errorf("failed to preserve %q: %w", name, err)
	}
	return nil
}

// BackupConfig moves the retrieved main configuration into the install
// directory with BackupSuffix appended and returns the new path.
func BackupConfig(retrievedPath, installDir string) (string, error) {
	backup := filepath.Join(installDir, MainConfigFile+BackupSuffix)
	if err := moveFile(retrievedPath, backup); err != nil {
		return "", fmt.Errorf("failed to back up %q: %w", MainConfigFile, err)
	}
	return backup, nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := copyFile(src, dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	return dstFile.Close()
}
