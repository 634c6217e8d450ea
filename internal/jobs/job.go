package jobs

import (
	"context"

	"github.com/google/uuid"
)

// Job is one unit of background work.
type Job struct {
	ID   uuid.UUID
	Name string

	// Run does the work. ctx is cancelled when the runner stops.
	Run func(ctx context.Context) error

	// OnAbandon, when set, is called with the reason if the job is accepted
	// but never started, for example because the runner stopped first.
	OnAbandon func(err error)
}

// NewJob creates a job with a fresh ID.
func NewJob(name string, run func(ctx context.Context) error) Job {
	return Job{ID: uuid.New(), Name: name, Run: run}
}

func (j Job) abandon(err error) {
	if j.OnAbandon != nil {
		j.OnAbandon(err)
	}
}
