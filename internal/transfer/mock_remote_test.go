package transfer_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ryanmoran/mt32pi-updater/internal/ftp"
)

// mockRemote is an in-memory transfer.Remote. Func fields override the
// default behaviour for a single call.
type mockRemote struct {
	files map[string][]byte
	dirs  []string

	retrieveFunc func(remotePath string, sink io.Writer, onRetry ftp.RetryHook) error
	storeFunc    func(remotePath string, source io.Reader, onProgress ftp.ProgressFunc, onRetry ftp.RetryHook) error
	makeDirFunc  func(remotePath string) error
}

func newMockRemote() *mockRemote {
	return &mockRemote{files: make(map[string][]byte)}
}

func (m *mockRemote) Retrieve(ctx context.Context, remotePath string, sink io.Writer, onRetry ftp.RetryHook) error {
	if m.retrieveFunc != nil {
		return m.retrieveFunc(remotePath, sink, onRetry)
	}
	content, ok := m.files[remotePath]
	if !ok {
		return fmt.Errorf("%w: %s", ftp.ErrNotFound, remotePath)
	}
	_, err := sink.Write(content)
	return err
}

func (m *mockRemote) Store(ctx context.Context, remotePath string, source io.Reader, onProgress ftp.ProgressFunc, onRetry ftp.RetryHook) error {
	if m.storeFunc != nil {
		return m.storeFunc(remotePath, source, onProgress, onRetry)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, source)
	if err != nil {
		return err
	}
	if onProgress != nil && n > 0 {
		onProgress(int(n))
	}
	m.files[remotePath] = buf.Bytes()
	return nil
}

func (m *mockRemote) MakeDir(ctx context.Context, remotePath string) error {
	m.dirs = append(m.dirs, remotePath)
	if m.makeDirFunc != nil {
		return m.makeDirFunc(remotePath)
	}
	return nil
}

var errTimeout = errors.New("i/o timeout")
