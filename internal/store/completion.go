package store

import "context"

// CompletionStore persists target-completion records: the fact that an
// external action has succeeded for (owner, content, target). The set of
// targets for one (owner, content) pair only ever grows, and never holds the
// same target twice.
type CompletionStore interface {
	// IsCompleted reports whether the exact (owner, content, target) triple was recorded.
	IsCompleted(ctx context.Context, ownerID int64, contentIdentity, target string) (bool, error)

	// MarkCompleted records the triple with its external reference. It is an
	// idempotent set union: inserted is false when the triple already existed,
	// and the existing record is left untouched.
	MarkCompleted(
		ctx context.Context,
		ownerID int64,
		contentIdentity, target, externalRef string,
	) (inserted bool, err error)

	// CompletedTargets returns the completed targets for (owner, content) in ascending order.
	CompletedTargets(ctx context.Context, ownerID int64, contentIdentity string) ([]string, error)
}
