package main

import (
	"bytes"
	"io"
	"net/textproto"
)

// mockServerConn is an in-memory ftp.ServerConn standing in for the SD card
// of a device.
type mockServerConn struct {
	files   map[string][]byte
	dirs    []string
	quits   int
	welcome string

	storFunc func(path string, r io.Reader) error
}

func newMockServerConn(files map[string]string) *mockServerConn {
	conn := &mockServerConn{files: make(map[string][]byte)}
	for path, content := range files {
		conn.files[path] = []byte(content)
	}
	return conn
}

func (m *mockServerConn) Retr(path string) (io.ReadCloser, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, &textproto.Error{Code: 550, Msg: "File not found"}
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *mockServerConn) Stor(path string, r io.Reader) error {
	if m.storFunc != nil {
		return m.storFunc(path, r)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.files[path] = content
	return nil
}

func (m *mockServerConn) MakeDir(path string) error {
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockServerConn) Welcome() string {
	return m.welcome
}

func (m *mockServerConn) Quit() error {
	m.quits++
	return nil
}
