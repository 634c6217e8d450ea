package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/phrazzld/engage-api/internal/store"
)

// PostgresCompletionStore implements store.CompletionStore on the
// target_completions table, whose primary key is (owner_id, content_identity, target).
type PostgresCompletionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCompletionStore creates a new PostgresCompletionStore.
func NewPostgresCompletionStore(db store.DBTX, logger *slog.Logger) *PostgresCompletionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCompletionStore{
		db:     db,
		logger: logger.With(slog.String("component", "completion_store")),
	}
}

var _ store.CompletionStore = (*PostgresCompletionStore)(nil)

// IsCompleted implements store.CompletionStore.IsCompleted.
func (s *PostgresCompletionStore) IsCompleted(
	ctx context.Context,
	ownerID int64,
	contentIdentity, target string,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM target_completions
			WHERE owner_id = $1 AND content_identity = $2 AND target = $3
		)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, ownerID, contentIdentity, target).Scan(&exists); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to check target completion",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", ownerID),
			slog.String("target", target))
		return false, MapError(err, nil)
	}
	return exists, nil
}

// MarkCompleted implements store.CompletionStore.MarkCompleted.
// The conflict clause makes concurrent recordings of the same triple collapse
// into one row.
func (s *PostgresCompletionStore) MarkCompleted(
	ctx context.Context,
	ownerID int64,
	contentIdentity, target, externalRef string,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO target_completions (owner_id, content_identity, target, external_ref, completed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, content_identity, target) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query, ownerID, contentIdentity, target, externalRef, time.Now().UTC())
	if err != nil {
		log.Error("failed to record target completion",
			slog.String("error", err.Error()),
			slog.Int64("owner_id", ownerID),
			slog.String("target", target))
		return false, MapError(err, nil)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		log.Debug("target completion already recorded",
			slog.Int64("owner_id", ownerID),
			slog.String("target", target))
	}
	return n > 0, nil
}

// CompletedTargets implements store.CompletionStore.CompletedTargets.
func (s *PostgresCompletionStore) CompletedTargets(
	ctx context.Context,
	ownerID int64,
	contentIdentity string,
) ([]string, error) {
	query := `
		SELECT target FROM target_completions
		WHERE owner_id = $1 AND content_identity = $2
		ORDER BY target ASC`
	targets := recordQuery[string]{
		db: s.db,
		scan: func(row rowScanner) (*string, error) {
			var t string
			return &t, row.Scan(&t)
		},
	}
	rows, err := targets.many(ctx, query, ownerID, contentIdentity)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, t := range rows {
		out = append(out, *t)
	}
	return out, nil
}
