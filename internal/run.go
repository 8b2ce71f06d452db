package internal

import (
	"fmt"
	"math/rand/v2"
)

// Run identifies one update of a device.
type Run struct {
	id int64
}

// NewRun creates a run with a random numeric identifier. The identifier
// names the staging directory and tags log lines.
func NewRun() Run {
	return Run{id: rand.Int64N(10000)}
}

// String returns the run identifier, equivalent to calling ID().
func (r Run) String() string {
	return r.ID()
}

// ID returns the identifier in the format "mt32pi-update-<number>".
func (r Run) ID() string {
	return fmt.Sprintf("mt32pi-update-%d", r.id)
}

// StagingPattern is the os.MkdirTemp pattern of the run's staging directory.
func (r Run) StagingPattern() string {
	return r.ID() + "-*"
}
