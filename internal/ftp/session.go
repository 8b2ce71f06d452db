package ftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxRetries is the number of attempts made before a transient
	// failure is handed back to the caller.
	DefaultMaxRetries = 5

	// DefaultRetryDelay is the base delay between attempts. Attempt n waits
	// n times this long.
	DefaultRetryDelay = 500 * time.Millisecond

	// ChunkSize is the size of each block moved during a transfer.
	ChunkSize = 8192
)

// RetryHook is called before an operation is attempted again, with the
// number of the attempt that just failed. Callers use it to rewind sources
// and sinks and reset progress. A non-nil error aborts the operation.
type RetryHook func(attempt int) error

// ProgressFunc receives the size of every chunk transferred.
type ProgressFunc func(n int)

// Session owns one connection to the device and replaces it whenever an
// operation fails transiently. It is not safe for concurrent use.
type Session struct {
	dial       Dialer
	params     Params
	conn       ServerConn
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithMaxRetries sets the total number of attempts per operation.
func WithMaxRetries(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base delay between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Session) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession dials the server and returns a connected Session.
func NewSession(dial Dialer, params Params, options ...Option) (*Session, error) {
	s := &Session{
		dial:       dial,
		params:     params,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     zerolog.Nop(),
	}
	for _, option := range options {
		option(s)
	}

	conn, err := dial(params)
	if err != nil {
		return nil, err
	}
	s.conn = conn

	return s, nil
}

// Retrieve downloads remotePath into sink. A missing file yields an error
// matching ErrNotFound and is never retried. onRetry may be nil.
func (s *Session) Retrieve(ctx context.Context, remotePath string, sink io.Writer, onRetry RetryHook) error {
	return s.do(ctx, "retrieve", remotePath, IsRetrieveTransient, onRetry, func(conn ServerConn) error {
		response, err := conn.Retr(remotePath)
		if err != nil {
			if IsNotFound(err) {
				return fmt.Errorf("%w: %s: %w", ErrNotFound, remotePath, err)
			}
			return err
		}

		// Anonymous wrappers keep io.CopyBuffer from bypassing the buffer
		// through ReaderFrom or WriterTo.
		buffer := make([]byte, ChunkSize)
		if _, err := io.CopyBuffer(struct{ io.Writer }{sink}, struct{ io.Reader }{response}, buffer); err != nil {
			_ = response.Close()
			return err
		}

		return response.Close()
	})
}

// Store uploads source to remotePath, reporting each chunk to onProgress.
// source is read from its current position; onRetry must rewind it.
func (s *Session) Store(ctx context.Context, remotePath string, source io.Reader, onProgress ProgressFunc, onRetry RetryHook) error {
	return s.do(ctx, "store", remotePath, IsStoreTransient, onRetry, func(conn ServerConn) error {
		return conn.Stor(remotePath, &chunkReader{r: source, onProgress: onProgress})
	})
}

// MakeDir creates a remote directory. Only network faults are retried; a
// refusal, such as for an existing directory, is returned as is.
func (s *Session) MakeDir(ctx context.Context, remotePath string) error {
	return s.do(ctx, "mkdir", remotePath, IsNetworkFault, nil, func(conn ServerConn) error {
		return conn.MakeDir(remotePath)
	})
}

// Welcome returns the greeting of the current connection, which on an
// mt32-pi carries the firmware version.
func (s *Session) Welcome() string {
	if s.conn == nil {
		return ""
	}
	return s.conn.Welcome()
}

// Close ends the session.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}

	err := s.conn.Quit()
	s.conn = nil
	return err
}

func (s *Session) do(ctx context.Context, op, remotePath string, transient Transient, onRetry RetryHook, fn func(ServerConn) error) error {
	for attempt := 1; ; attempt++ {
		err := s.attempt(fn)
		if err == nil {
			return nil
		}

		if !transient(err) {
			return err
		}

		if attempt >= s.maxRetries {
			return &RetryError{Op: op, Path: remotePath, Attempts: attempt, Err: err}
		}

		s.logger.Warn().
			Err(err).
			Str("op", op).
			Str("path", remotePath).
			Int("attempt", attempt).
			Msg("transient failure, reconnecting")

		if onRetry != nil {
			if hookErr := onRetry(attempt); hookErr != nil {
				return fmt.Errorf("failed to prepare retry of %s %q: %w", op, remotePath, errors.Join(hookErr, err))
			}
		}

		s.discard()

		if err := s.wait(ctx, time.Duration(attempt)*s.retryDelay); err != nil {
			return err
		}
	}
}

func (s *Session) attempt(fn func(ServerConn) error) error {
	if s.conn == nil {
		s.logger.Debug().Str("host", s.params.Host).Msg("reconnecting")

		conn, err := s.dial(s.params)
		if err != nil {
			return err
		}
		s.conn = conn
	}

	return fn(s.conn)
}

func (s *Session) discard() {
	if s.conn == nil {
		return
	}

	if err := s.conn.Quit(); err != nil {
		s.logger.Debug().Err(err).Msg("ignoring error while dropping connection")
	}
	s.conn = nil
}

func (s *Session) wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// chunkReader caps reads at ChunkSize and reports every chunk.
type chunkReader struct {
	r          io.Reader
	onProgress ProgressFunc
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(p) > ChunkSize {
		p = p[:ChunkSize]
	}

	n, err := c.r.Read(p)
	if n > 0 && c.onProgress != nil {
		c.onProgress(n)
	}
	return n, err
}
