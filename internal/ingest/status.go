package ingest

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// StateReporter is implemented by Pipeline.
type StateReporter interface {
	State() State
}

// StatusSnapshot is a point-in-time view of a run, served by the status
// endpoint.
type StatusSnapshot struct {
	RunID     string `json:"run_id"`
	State     string `json:"state"`
	Persisted int64  `json:"persisted"`
	Batches   int64  `json:"batches"`
	Milestone int64  `json:"last_milestone"`
}

// StatusBoard mirrors progress updates so that other goroutines can read
// them. The aggregator stays the only writer of the real counter.
type StatusBoard struct {
	runID     uuid.UUID
	state     StateReporter
	persisted atomic.Int64
	batches   atomic.Int64
	milestone atomic.Int64
}

func NewStatusBoard(runID uuid.UUID, state StateReporter) *StatusBoard {
	return &StatusBoard{runID: runID, state: state}
}

// Track sets the run whose state is reported. Call it before the board is
// shared with other goroutines.
func (b *StatusBoard) Track(state StateReporter) {
	b.state = state
}

func (b *StatusBoard) BatchPersisted(total int64, batches int) {
	b.persisted.Store(total)
	b.batches.Store(int64(batches))
}

func (b *StatusBoard) Milestone(count int64) {
	b.milestone.Store(count)
}

func (b *StatusBoard) Snapshot() StatusSnapshot {
	state := StateIdle
	if b.state != nil {
		state = b.state.State()
	}
	return StatusSnapshot{
		RunID:     b.runID.String(),
		State:     state.String(),
		Persisted: b.persisted.Load(),
		Batches:   b.batches.Load(),
		Milestone: b.milestone.Load(),
	}
}
