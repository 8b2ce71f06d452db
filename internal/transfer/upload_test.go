package transfer_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanmoran/mt32pi-updater/internal"
	"github.com/ryanmoran/mt32pi-updater/internal/ftp"
	"github.com/ryanmoran/mt32pi-updater/internal/transfer"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestBuildManifest(t *testing.T) {
	root := writeTree(t, map[string]string{
		"kernel8.img":       "kernel",
		"mt32-pi.cfg":       "[system]\n",
		"roms/MT32_CONTROL": "rom",
		"docs/readme.txt":   "",
	})

	manifest, err := transfer.BuildManifest(root, internal.ParseIgnoreList("roms/"))
	require.NoError(t, err)
	require.Len(t, manifest, 4)

	var rels []string
	for _, entry := range manifest {
		rels = append(rels, entry.RelPath)
	}
	assert.Equal(t, []string{"docs/readme.txt", "kernel8.img", "mt32-pi.cfg", "roms/MT32_CONTROL"}, rels)

	assert.Equal(t, "/SD/docs/readme.txt", manifest[0].RemotePath)
	assert.Equal(t, int64(0), manifest[0].Size)
	assert.Equal(t, int64(6), manifest[1].Size)
	assert.False(t, manifest[1].Ignored)
	assert.True(t, manifest[3].Ignored)
	assert.Equal(t, filepath.Join(root, "roms", "MT32_CONTROL"), manifest[3].LocalPath)
}

func TestRemotePath(t *testing.T) {
	assert.Equal(t, "/SD/mt32-pi.cfg", transfer.RemotePath("mt32-pi.cfg"))
	assert.Equal(t, "/SD/a/b.txt", transfer.RemotePath("/a/b.txt"))
}

func TestUploadTree(t *testing.T) {
	t.Run("uploads everything not ignored and creates directories once", func(t *testing.T) {
		root := writeTree(t, map[string]string{
			"kernel8.img":            "kernel",
			"docs/a.txt":             "a",
			"docs/b.txt":             "b",
			"docs/nested/c.txt":      "c",
			"roms/MT32_CONTROL.ROM":  "rom",
			"soundfonts/General.sf2": "sf2",
			"empty.txt":              "",
		})
		remote := newMockRemote()
		var out bytes.Buffer

		result, err := transfer.UploadTree(context.Background(), remote, root, internal.ParseIgnoreList("roms/, soundfonts/"), internal.NewCustomWriter(&out, &out))
		require.NoError(t, err)

		assert.Equal(t, []string{"docs/a.txt", "docs/b.txt", "docs/nested/c.txt", "empty.txt", "kernel8.img"}, result.Uploaded)
		assert.Equal(t, []string{"roms/MT32_CONTROL.ROM", "soundfonts/General.sf2"}, result.Skipped)
		assert.Equal(t, []string{"/SD/docs", "/SD/docs/nested"}, remote.dirs)

		assert.Equal(t, []byte("kernel"), remote.files["/SD/kernel8.img"])
		assert.Equal(t, []byte("c"), remote.files["/SD/docs/nested/c.txt"])
		assert.Contains(t, remote.files, "/SD/empty.txt")
		assert.NotContains(t, remote.files, "/SD/roms/MT32_CONTROL.ROM")

		assert.Equal(t, 5, strings.Count(out.String(), "DONE!"))
		assert.Equal(t, 2, strings.Count(out.String(), "SKIPPED!"))
	})

	t.Run("stops when a directory cannot be created for lack of a connection", func(t *testing.T) {
		root := writeTree(t, map[string]string{"docs/a.txt": "a", "docs/b.txt": "b"})
		remote := newMockRemote()
		remote.makeDirFunc = func(remotePath string) error {
			return &ftp.RetryError{Op: "mkdir", Path: remotePath, Attempts: 5, Err: syscall.ECONNRESET}
		}
		stores := 0
		remote.storeFunc = func(string, io.Reader, ftp.ProgressFunc, ftp.RetryHook) error {
			stores++
			return nil
		}
		var out bytes.Buffer

		result, err := transfer.UploadTree(context.Background(), remote, root, internal.IgnoreList{}, internal.NewCustomWriter(&out, &out))
		require.ErrorContains(t, err, `failed to create remote directory "docs"`)
		require.ErrorIs(t, err, syscall.ECONNRESET)
		assert.Empty(t, result.Uploaded)
		assert.Zero(t, stores)
		assert.Equal(t, []string{"/SD/docs"}, remote.dirs)
	})

	t.Run("ignores the server refusing to create directories", func(t *testing.T) {
		root := writeTree(t, map[string]string{"docs/a.txt": "a"})
		remote := newMockRemote()
		remote.makeDirFunc = func(string) error {
			return &textproto.Error{Code: 550, Msg: "Directory already exists"}
		}
		var out bytes.Buffer

		result, err := transfer.UploadTree(context.Background(), remote, root, internal.IgnoreList{}, internal.NewCustomWriter(&out, &out))
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/a.txt"}, result.Uploaded)
	})

	t.Run("rewinds the file when a store is retried", func(t *testing.T) {
		root := writeTree(t, map[string]string{"kernel8.img": "0123456789"})
		remote := newMockRemote()
		remote.storeFunc = func(remotePath string, source io.Reader, onProgress ftp.ProgressFunc, onRetry ftp.RetryHook) error {
			buf := make([]byte, 4)
			_, err := io.ReadFull(source, buf)
			require.NoError(t, err)
			onProgress(4)

			require.NoError(t, onRetry(1))

			content, err := io.ReadAll(source)
			require.NoError(t, err)
			onProgress(len(content))
			remote.files[remotePath] = content
			return nil
		}
		var out bytes.Buffer

		_, err := transfer.UploadTree(context.Background(), remote, root, internal.IgnoreList{}, internal.NewCustomWriter(&out, &out))
		require.NoError(t, err)
		assert.Equal(t, []byte("0123456789"), remote.files["/SD/kernel8.img"])
	})

	t.Run("stops at the first file that cannot be stored", func(t *testing.T) {
		root := writeTree(t, map[string]string{"a.txt": "a", "b.txt": "b"})
		remote := newMockRemote()
		remote.storeFunc = func(remotePath string, _ io.Reader, _ ftp.ProgressFunc, _ ftp.RetryHook) error {
			return &ftp.RetryError{Op: "STOR", Path: remotePath, Attempts: 5, Err: syscall.ECONNRESET}
		}
		var out bytes.Buffer

		result, err := transfer.UploadTree(context.Background(), remote, root, internal.IgnoreList{}, internal.NewCustomWriter(&out, &out))
		require.ErrorContains(t, err, `failed to upload "a.txt"`)
		require.ErrorIs(t, err, syscall.ECONNRESET)
		assert.Empty(t, result.Uploaded)
		assert.Contains(t, out.String(), "FAILED!")
	})

	t.Run("fails when the local tree is missing", func(t *testing.T) {
		var out bytes.Buffer
		_, err := transfer.UploadTree(context.Background(), newMockRemote(), filepath.Join(t.TempDir(), "missing"), internal.IgnoreList{}, internal.NewCustomWriter(&out, &out))
		require.ErrorContains(t, err, "failed to list files")
	})
}

// TestUploadTree_Session drives an upload through a real session whose
// connection drops midway through the first store.
func TestUploadTree_Session(t *testing.T) {
	root := writeTree(t, map[string]string{"kernel8.img": strings.Repeat("k", 20000)})

	var stored [][]byte
	stors := 0
	conn := &fakeServerConn{
		stor: func(path string, r io.Reader) error {
			stors++
			if stors == 1 {
				buf := make([]byte, 9000)
				_, _ = io.ReadFull(r, buf)
				return &os.SyscallError{Syscall: "write", Err: syscall.EPIPE}
			}
			content, err := io.ReadAll(r)
			stored = append(stored, content)
			return err
		},
	}
	session, err := ftp.NewSession(func(ftp.Params) (ftp.ServerConn, error) {
		return conn, nil
	}, ftp.Params{Host: "mt32-pi"}, ftp.WithRetryDelay(0))
	require.NoError(t, err)
	defer session.Close()

	var out bytes.Buffer
	result, err := transfer.UploadTree(context.Background(), session, root, internal.IgnoreList{}, internal.NewCustomWriter(&out, &out))
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel8.img"}, result.Uploaded)
	assert.Equal(t, 2, stors)
	require.Len(t, stored, 1)
	assert.Len(t, stored[0], 20000)
}

type fakeServerConn struct {
	stor func(path string, r io.Reader) error
}

func (f *fakeServerConn) Retr(path string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeServerConn) Stor(path string, r io.Reader) error { return f.stor(path, r) }

func (f *fakeServerConn) MakeDir(path string) error { return nil }

func (f *fakeServerConn) Welcome() string { return "" }

func (f *fakeServerConn) Quit() error { return nil }
