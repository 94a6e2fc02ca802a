package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/blockedby/repost-tracer/internal/models"
)

func setupTaskLogs(t *testing.T) *TaskLogRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tasks.db")), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)

	repo := NewTaskLogRepository(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func outcome(index int, session, channel string, status models.TaskStatus) models.TaskOutcome {
	return models.TaskOutcome{
		Task:     models.ScanTask{Index: index, Session: session, Channel: channel, Limit: 100},
		Status:   status,
		Scanned:  100,
		Records:  7,
		Duration: 1500 * time.Millisecond,
	}
}

func TestTaskLogRepository_SaveAndList(t *testing.T) {
	repo := setupTaskLogs(t)
	ctx := context.Background()
	runID := uuid.New()

	failed := outcome(1, "alice", "chan_b", models.TaskStatusFailed)
	failed.Error = "CHANNEL_PRIVATE"
	failed.Records = 0

	in := []models.TaskOutcome{
		outcome(2, "bob", "chan_a", models.TaskStatusOK),
		outcome(0, "alice", "chan_a", models.TaskStatusOK),
		failed,
	}
	require.NoError(t, repo.SaveOutcomes(ctx, runID, in))

	// another run must not leak in
	require.NoError(t, repo.SaveOutcomes(ctx, uuid.New(), []models.TaskOutcome{outcome(0, "carol", "x", models.TaskStatusOK)}))

	got, err := repo.ListByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, in[1], got[0])
	assert.Equal(t, failed, got[1])
	assert.Equal(t, in[0], got[2])
}

func TestTaskLogRepository_SaveNothing(t *testing.T) {
	repo := setupTaskLogs(t)

	require.NoError(t, repo.SaveOutcomes(context.Background(), uuid.New(), nil))
}

func TestTaskLogRepository_ListUnknownRun(t *testing.T) {
	repo := setupTaskLogs(t)

	got, err := repo.ListByRun(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTaskLogRepository_FailureCounts(t *testing.T) {
	repo := setupTaskLogs(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveOutcomes(ctx, uuid.New(), []models.TaskOutcome{
		outcome(0, "alice", "a", models.TaskStatusUnauthorized),
		outcome(1, "alice", "b", models.TaskStatusUnauthorized),
		outcome(2, "alice", "c", models.TaskStatusFailed),
		outcome(3, "alice", "d", models.TaskStatusOK),
		outcome(4, "bob", "a", models.TaskStatusFailed),
	}))

	counts, err := repo.FailureCounts(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, map[models.TaskStatus]int{
		models.TaskStatusUnauthorized: 2,
		models.TaskStatusFailed:       1,
	}, counts)

	none, err := repo.FailureCounts(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
