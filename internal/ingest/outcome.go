package ingest

import (
	"time"

	"github.com/google/uuid"
)

type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeFailure
)

func (s OutcomeStatus) String() string {
	if s == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// Outcome is the single terminal result of a pipeline run.
type Outcome struct {
	RunID     uuid.UUID
	Status    OutcomeStatus
	Persisted int64
	Batches   int
	Duration  time.Duration
	Err       error
}

func (o Outcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// ExitCode maps the outcome to a process exit status: 0 on success, 1 on
// failure.
func (o Outcome) ExitCode() int {
	if o.Succeeded() {
		return 0
	}
	return 1
}
