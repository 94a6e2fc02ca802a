package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blockedby/repost-tracer/internal/models"
)

// TaskLog is the stored outcome of one scan task.
type TaskLog struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"size:36;index:idx_task_logs_run,priority:1"`
	Position   int    `gorm:"index:idx_task_logs_run,priority:2"`
	Session    string
	Channel    string
	Limit      int    `gorm:"column:message_limit"`
	Status     string `gorm:"size:32"`
	Error      string
	Scanned    int
	Records    int
	DurationMS int64
	CreatedAt  time.Time
}

// TableName pins the table name.
func (TaskLog) TableName() string {
	return "scan_task_logs"
}

// TaskLogRepository stores per-task outcomes through gorm.
type TaskLogRepository struct {
	db *gorm.DB
}

// NewTaskLogRepository creates a new task log repository
func NewTaskLogRepository(db *gorm.DB) *TaskLogRepository {
	return &TaskLogRepository{db: db}
}

// Migrate creates or updates the task log table.
func (r *TaskLogRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&TaskLog{}); err != nil {
		return fmt.Errorf("migrate task logs: %w", err)
	}
	return nil
}

// SaveOutcomes stores every outcome of a run.
func (r *TaskLogRepository) SaveOutcomes(ctx context.Context, runID uuid.UUID, outcomes []models.TaskOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	logs := make([]TaskLog, len(outcomes))
	for i, o := range outcomes {
		logs[i] = TaskLog{
			RunID:      runID.String(),
			Position:   o.Task.Index,
			Session:    o.Task.Session,
			Channel:    o.Task.Channel,
			Limit:      o.Task.Limit,
			Status:     string(o.Status),
			Error:      o.Error,
			Scanned:    o.Scanned,
			Records:    o.Records,
			DurationMS: o.Duration.Milliseconds(),
		}
	}

	if err := r.db.WithContext(ctx).CreateInBatches(logs, 100).Error; err != nil {
		return fmt.Errorf("save task logs: %w", err)
	}
	return nil
}

// ListByRun returns the outcomes of a run in submission order.
func (r *TaskLogRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]models.TaskOutcome, error) {
	var logs []TaskLog
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID.String()).
		Order("position").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("list task logs: %w", err)
	}

	out := make([]models.TaskOutcome, len(logs))
	for i, l := range logs {
		out[i] = models.TaskOutcome{
			Task: models.ScanTask{
				Index:   l.Position,
				Session: l.Session,
				Channel: l.Channel,
				Limit:   l.Limit,
			},
			Status:   models.TaskStatus(l.Status),
			Error:    l.Error,
			Scanned:  l.Scanned,
			Records:  l.Records,
			Duration: time.Duration(l.DurationMS) * time.Millisecond,
		}
	}
	return out, nil
}

// FailureCounts returns how often each non-OK status occurred for a session
// across all stored runs.
func (r *TaskLogRepository) FailureCounts(ctx context.Context, session string) (map[models.TaskStatus]int, error) {
	var rows []struct {
		Status string
		Count  int
	}
	err := r.db.WithContext(ctx).
		Model(&TaskLog{}).
		Select("status, COUNT(*) AS count").
		Where("session = ? AND status <> ?", session, string(models.TaskStatusOK)).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count failures: %w", err)
	}

	counts := make(map[models.TaskStatus]int, len(rows))
	for _, row := range rows {
		counts[models.TaskStatus(row.Status)] = row.Count
	}
	return counts, nil
}
