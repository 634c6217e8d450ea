package orchestrator

import (
	"context"

	"github.com/phrazzld/engage-api/internal/dispatch"
	"github.com/phrazzld/engage-api/internal/store"
)

// CheckTargetCompletion asks whether the action already succeeded for the triple.
type CheckTargetCompletion struct {
	OwnerID         int64
	ContentIdentity string
	Target          string
}

// RecordTargetCompletion records a successful action. The result reports
// whether a new record was written.
type RecordTargetCompletion struct {
	OwnerID         int64
	ContentIdentity string
	Target          string
	ExternalRef     string
}

// ListCompletedTargets returns the completed targets for (owner, content).
type ListCompletedTargets struct {
	OwnerID         int64
	ContentIdentity string
}

// RegisterCompletions binds the completion-record messages to completions on bus.
func RegisterCompletions(bus *dispatch.Bus, completions store.CompletionStore) error {
	if err := dispatch.RegisterQuery(bus, func(ctx context.Context, q CheckTargetCompletion) (bool, error) {
		return completions.IsCompleted(ctx, q.OwnerID, q.ContentIdentity, q.Target)
	}); err != nil {
		return err
	}
	if err := dispatch.RegisterCommand(bus, func(ctx context.Context, c RecordTargetCompletion) (bool, error) {
		return completions.MarkCompleted(ctx, c.OwnerID, c.ContentIdentity, c.Target, c.ExternalRef)
	}); err != nil {
		return err
	}
	return dispatch.RegisterQuery(bus, func(ctx context.Context, q ListCompletedTargets) ([]string, error) {
		return completions.CompletedTargets(ctx, q.OwnerID, q.ContentIdentity)
	})
}
