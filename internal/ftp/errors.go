package ftp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"syscall"
)

// Reply codes sent by the mt32-pi FTP server that matter to the updater.
const (
	replyServiceNotAvailable   = 421
	replyDataConnectionFailed  = 425
	replyTransferAborted       = 426
	replyFileActionNotTaken    = 450
	replyActionAbortedLocalErr = 451
	replyFileNotFound          = 550
)

// ErrNotFound is returned by Session.Retrieve when the remote file does not
// exist.
var ErrNotFound = errors.New("remote file not found")

// RetryError is returned once an operation has failed transiently on every
// allowed attempt. It unwraps to the error of the last attempt.
type RetryError struct {
	Op       string
	Path     string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%s %q failed after %d attempts: %v", e.Op, e.Path, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// Transient decides whether an error is worth another attempt.
type Transient func(err error) bool

func replyCode(err error) (int, bool) {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code, true
	}
	return 0, false
}

// IsNetworkFault reports whether err comes from the connection itself:
// timeouts, resets, refused or dropped connections. A bare io.EOF counts
// because the control connection reports a device that rebooted or dropped
// off Wi-Fi between replies that way. A host name that does not resolve
// does not count.
func IsNetworkFault(err error) bool {
	if err == nil {
		return false
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsRetrieveTransient classifies errors of a download. Replies meaning the
// file is absent are final.
func IsRetrieveTransient(err error) bool {
	if code, ok := replyCode(err); ok {
		switch code {
		case replyServiceNotAvailable, replyDataConnectionFailed, replyTransferAborted, replyActionAbortedLocalErr:
			return true
		}
		return false
	}

	return IsNetworkFault(err)
}

// IsStoreTransient classifies errors of an upload. Every 4xx reply is
// temporary by definition.
func IsStoreTransient(err error) bool {
	if code, ok := replyCode(err); ok {
		return code/100 == 4
	}

	return IsNetworkFault(err)
}

// IsRefusal reports whether err is a reply from the server, as opposed to a
// fault of the connection.
func IsRefusal(err error) bool {
	_, ok := replyCode(err)
	return ok
}

// IsNotFound reports whether a retrieve failed because the file is absent.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}

	code, ok := replyCode(err)
	return ok && (code == replyFileActionNotTaken || code == replyFileNotFound)
}
