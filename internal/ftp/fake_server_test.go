package ftp_test

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testGreeting = "Welcome to the mt32-pi v0.13.0 embedded FTP server!"

// fakeServer is a minimal FTP server on the loopback interface. Login,
// FEAT, TYPE and EPSV are answered; everything else goes to handle.
type fakeServer struct {
	listener net.Listener
	handle   func(session *fakeSession, command, argument string)

	mu      sync.Mutex
	closers []io.Closer
}

type fakeSession struct {
	server  *fakeServer
	control *bufio.ReadWriter
	data    net.Listener
}

func (s *fakeSession) reply(format string, args ...interface{}) {
	fmt.Fprintf(s.control, format+"\r\n", args...)
	s.control.Flush()
}

// acceptData accepts the data connection the client opened after EPSV.
func (s *fakeSession) acceptData() net.Conn {
	conn, err := s.data.Accept()
	if err != nil {
		return nil
	}
	s.server.track(conn)
	return conn
}

func newFakeServer(t *testing.T, handle func(session *fakeSession, command, argument string)) *fakeServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := &fakeServer{listener: listener, handle: handle}
	t.Cleanup(server.close)

	go server.serve()
	return server
}

func (s *fakeServer) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *fakeServer) track(closer io.Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, closer)
}

func (s *fakeServer) close() {
	s.listener.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, closer := range s.closers {
		closer.Close()
	}
}

func (s *fakeServer) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.track(conn)
		go s.serveConn(conn)
	}
}

func (s *fakeServer) serveConn(conn net.Conn) {
	session := &fakeSession{server: s, control: bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))}
	session.reply("220 %s", testGreeting)
	defer func() {
		if session.data != nil {
			session.data.Close()
		}
	}()

	for {
		line, err := session.control.ReadString('\n')
		if err != nil {
			return
		}

		command, argument, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch strings.ToUpper(command) {
		case "USER":
			session.reply("331 Password required")
		case "PASS":
			session.reply("230 Logged in")
		case "FEAT":
			session.reply("502 Not implemented")
		case "TYPE":
			session.reply("200 Type set")
		case "EPSV":
			data, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				session.reply("425 Cannot open data connection")
				continue
			}
			s.track(data)
			session.data = data
			session.reply("229 Entering Extended Passive Mode (|||%s|)", strconv.Itoa(data.Addr().(*net.TCPAddr).Port))
		case "QUIT":
			session.reply("221 Goodbye")
			return
		default:
			s.handle(session, strings.ToUpper(command), argument)
		}
	}
}
