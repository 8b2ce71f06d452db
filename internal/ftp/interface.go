package ftp

import (
	"io"
	"time"
)

// ServerConn is the part of an FTP control connection the updater uses.
//
// Dial returns an implementation backed by github.com/jlaffaye/ftp. Tests
// provide their own through a Dialer:
//
//	session, err := ftp.NewSession(func(p ftp.Params) (ftp.ServerConn, error) {
//	    return &mockServerConn{...}, nil
//	}, params)
type ServerConn interface {
	Retr(path string) (io.ReadCloser, error)
	Stor(path string, r io.Reader) error
	MakeDir(path string) error

	// Welcome returns the greeting the server sent when the connection was
	// opened, without its reply code.
	Welcome() string

	Quit() error
}

// Params holds everything needed to open, and later reopen, a connection.
type Params struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Dialer opens an authenticated connection.
type Dialer func(params Params) (ServerConn, error)
