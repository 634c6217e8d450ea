package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/phrazzld/engage-api/internal/domain"
	"github.com/phrazzld/engage-api/internal/platform/logger"
	"github.com/phrazzld/engage-api/internal/platform/postgres"
	"github.com/phrazzld/engage-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taskCols = []string{"id", "agent_id", "task_name", "status", "result_data", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestPostgresTaskStore_Create(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresTaskStore(db, logger.Discard())
	now := time.Now().UTC()

	task, err := domain.NewTask("agent-1", "scrape", "", nil)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs("agent-1", "scrape", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(int64(7), "agent-1", "scrape", "pending", nil, now, now))

	require.NoError(t, s.Create(context.Background(), task))
	assert.Equal(t, int64(7), task.ID)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Nil(t, task.ResultData)
}

func TestPostgresTaskStore_CreateRejectsInvalidTask(t *testing.T) {
	db, _ := newMock(t)
	s := postgres.NewPostgresTaskStore(db, logger.Discard())

	err := s.Create(context.Background(), &domain.Task{TaskName: "x", Status: domain.TaskStatusPending})

	assert.ErrorIs(t, err, domain.ErrEmptyTaskAgentID)
}

func TestPostgresTaskStore_GetByID(t *testing.T) {
	now := time.Now().UTC()

	t.Run("decodes result data", func(t *testing.T) {
		db, mock := newMock(t)
		s := postgres.NewPostgresTaskStore(db, logger.Discard())
		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1")).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(taskCols).
				AddRow(int64(3), "a", "t", "completed", []byte(`{"posted":["golang"]}`), now, now))

		task, err := s.GetByID(context.Background(), 3)

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, task.Status)
		assert.Equal(t, []any{"golang"}, task.ResultData["posted"])
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := newMock(t)
		s := postgres.NewPostgresTaskStore(db, logger.Discard())
		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE id = $1")).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := s.GetByID(context.Background(), 99)

		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStore_ListByAgent(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresTaskStore(db, logger.Discard())
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE agent_id = $1")).
		WithArgs("agent-1", 0, 100).
		WillReturnRows(sqlmock.NewRows(taskCols).
			AddRow(int64(1), "agent-1", "a", "pending", nil, now, now).
			AddRow(int64(2), "agent-1", "b", "running", nil, now, now))

	tasks, err := s.ListByAgent(context.Background(), "agent-1", 0, 100)

	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, int64(1), tasks[0].ID)
	assert.Equal(t, int64(2), tasks[1].ID)
}

func TestPostgresTaskStore_ListEmpty(t *testing.T) {
	db, mock := newMock(t)
	s := postgres.NewPostgresTaskStore(db, logger.Discard())
	mock.ExpectQuery(regexp.QuoteMeta("FROM tasks ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows(taskCols))

	tasks, err := s.List(context.Background(), 0, 100)

	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestPostgresTaskStore_UpdateStatus(t *testing.T) {
	now := time.Now().UTC()

	t.Run("returns updated row", func(t *testing.T) {
		db, mock := newMock(t)
		s := postgres.NewPostgresTaskStore(db, logger.Discard())
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks")).
			WithArgs(int64(5), sqlmock.AnyArg(), []byte(`{"error":"boom"}`), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(taskCols).
				AddRow(int64(5), "a", "t", "failed", []byte(`{"error":"boom"}`), now, now))

		task, err := s.UpdateStatus(context.Background(), 5, domain.TaskStatusFailed,
			domain.ResultData{"error": "boom"})

		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusFailed, task.Status)
		assert.Equal(t, "boom", task.ResultData["error"])
	})

	t.Run("unknown id", func(t *testing.T) {
		db, mock := newMock(t)
		s := postgres.NewPostgresTaskStore(db, logger.Discard())
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks")).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM tasks WHERE id = $1")).
			WithArgs(int64(404)).
			WillReturnError(sql.ErrNoRows)

		_, err := s.UpdateStatus(context.Background(), 404, domain.TaskStatusRunning, nil)

		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("finished task is left alone", func(t *testing.T) {
		db, mock := newMock(t)
		s := postgres.NewPostgresTaskStore(db, logger.Discard())
		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND status NOT IN ('completed', 'failed')")).
			WithArgs(int64(5), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM tasks WHERE id = $1")).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

		_, err := s.UpdateStatus(context.Background(), 5, domain.TaskStatusFailed,
			domain.ResultData{"error": "stale"})

		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
		assert.NotErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("driver error is passed through", func(t *testing.T) {
		db, mock := newMock(t)
		s := postgres.NewPostgresTaskStore(db, logger.Discard())
		driverErr := errors.New("connection reset")
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE tasks")).WillReturnError(driverErr)

		_, err := s.UpdateStatus(context.Background(), 1, domain.TaskStatusRunning, nil)

		assert.ErrorIs(t, err, driverErr)
	})
}
