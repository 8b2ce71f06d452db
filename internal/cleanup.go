package internal

import (
	"sync"

	"github.com/rs/zerolog"
)

// CleanupManager runs registered teardown steps (closing the FTP session,
// removing the staging directory) in LIFO order.
type CleanupManager struct {
	mu     sync.Mutex
	funcs  []cleanupFunc
	logger zerolog.Logger
}

type cleanupFunc struct {
	name string
	fn   func() error
}

// NewCleanupManager creates a cleanup manager that reports failed steps to
// logger.
func NewCleanupManager(logger zerolog.Logger) *CleanupManager {
	return &CleanupManager{logger: logger}
}

// Add registers a cleanup function. The most recently added runs first.
func (m *CleanupManager) Add(name string, fn func() error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append([]cleanupFunc{{name, fn}}, m.funcs...)
}

// Execute runs every cleanup function once, logging failures without
// stopping.
func (m *CleanupManager) Execute() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cleanup := range m.funcs {
		if err := cleanup.fn(); err != nil {
			m.logger.Warn().Err(err).Str("step", cleanup.name).Msg("cleanup failed")
		}
	}
	m.funcs = nil
}
