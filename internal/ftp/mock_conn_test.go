package ftp_test

import (
	"errors"
	"io"
)

// mockServerConn is a mock implementation of ftp.ServerConn for testing
type mockServerConn struct {
	retrFunc    func(path string) (io.ReadCloser, error)
	storFunc    func(path string, r io.Reader) error
	makeDirFunc func(path string) error
	quitFunc    func() error
	welcome     string
}

func (m *mockServerConn) Retr(path string) (io.ReadCloser, error) {
	if m.retrFunc != nil {
		return m.retrFunc(path)
	}
	return nil, errors.New("not implemented")
}

func (m *mockServerConn) Stor(path string, r io.Reader) error {
	if m.storFunc != nil {
		return m.storFunc(path, r)
	}
	return errors.New("not implemented")
}

func (m *mockServerConn) MakeDir(path string) error {
	if m.makeDirFunc != nil {
		return m.makeDirFunc(path)
	}
	return errors.New("not implemented")
}

func (m *mockServerConn) Welcome() string {
	return m.welcome
}

func (m *mockServerConn) Quit() error {
	if m.quitFunc != nil {
		return m.quitFunc()
	}
	return nil
}
