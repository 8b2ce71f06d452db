package ftp

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	goftp "github.com/jlaffaye/ftp"
)

// DefaultPort is the FTP control port.
const DefaultPort = 21

// maxGreeting bounds how much of the server greeting is kept.
const maxGreeting = 1024

type serverConn struct {
	conn    *goftp.ServerConn
	control *deadlineConn
}

// Dial connects to the FTP server described by params and logs in. A
// positive params.Timeout bounds connecting and every read or write on the
// control and data connections, so a stalled server surfaces as a network
// fault instead of blocking.
func Dial(params Params) (ServerConn, error) {
	port := params.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(params.Host, strconv.Itoa(port))

	dialer := &net.Dialer{Timeout: params.Timeout}
	var control *deadlineConn

	options := []goftp.DialOption{
		goftp.DialWithDialFunc(func(network, address string) (net.Conn, error) {
			conn, err := dialer.Dial(network, address)
			if err != nil {
				return nil, err
			}

			wrapped := &deadlineConn{Conn: conn, timeout: params.Timeout}
			if control == nil {
				wrapped.recordGreeting = true
				control = wrapped
			}
			return wrapped, nil
		}),
	}
	if params.Timeout > 0 {
		options = append(options, goftp.DialWithShutTimeout(params.Timeout))
	}

	conn, err := goftp.Dial(addr, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if err := conn.Login(params.Username, params.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("failed to log in to %s as %q: %w", addr, params.Username, err)
	}

	return serverConn{conn: conn, control: control}, nil
}

func (c serverConn) Retr(path string) (io.ReadCloser, error) {
	response, err := c.conn.Retr(path)
	if err != nil {
		return nil, err
	}
	return response, nil
}

func (c serverConn) Stor(path string, r io.Reader) error {
	return c.conn.Stor(path, r)
}

func (c serverConn) MakeDir(path string) error {
	return c.conn.MakeDir(path)
}

func (c serverConn) Welcome() string {
	if c.control == nil {
		return ""
	}
	return c.control.welcome()
}

func (c serverConn) Quit() error {
	return c.conn.Quit()
}

// deadlineConn pushes the deadline of the underlying connection forward
// before every read and write. The control connection also keeps the first
// line the server sends.
type deadlineConn struct {
	net.Conn
	timeout time.Duration

	recordGreeting bool
	greeting       []byte
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}

	n, err := c.Conn.Read(p)
	if c.recordGreeting && n > 0 {
		c.record(p[:n])
	}
	return n, err
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}

	return c.Conn.Write(p)
}

func (c *deadlineConn) record(p []byte) {
	if i := bytes.IndexByte(p, '\n'); i >= 0 {
		p = p[:i]
		c.recordGreeting = false
	}

	c.greeting = append(c.greeting, p[:min(len(p), maxGreeting-len(c.greeting))]...)
	if len(c.greeting) >= maxGreeting {
		c.recordGreeting = false
	}
}

// welcome returns the greeting without its reply code.
func (c *deadlineConn) welcome() string {
	line := strings.TrimSpace(string(c.greeting))
	if len(line) >= 4 && strings.HasPrefix(line, "220") {
		line = line[4:]
	}
	return strings.TrimSpace(line)
}
