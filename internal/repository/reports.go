// Package repository persists scan runs, their records and task logs.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/blockedby/repost-tracer/internal/models"
)

// Run statuses
const (
	RunStatusRunning   = "RUNNING"
	RunStatusCompleted = "COMPLETED"
	RunStatusFailed    = "FAILED"
)

// Run is one stored scan run.
type Run struct {
	ID           uuid.UUID             `json:"id"`
	Sessions     []string              `json:"sessions"`
	Channels     []string              `json:"channels"`
	MessageLimit int                   `json:"message_limit"`
	Status       string                `json:"status"`
	Error        *string               `json:"error,omitempty"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   *time.Time            `json:"finished_at,omitempty"`
	Records      []models.RepostRecord `json:"records,omitempty"`
}

// ReportsRepository handles scan_runs and repost_records.
type ReportsRepository struct {
	pool *pgxpool.Pool
}

// NewReportsRepository creates a new reports repository
func NewReportsRepository(pool *pgxpool.Pool) *ReportsRepository {
	return &ReportsRepository{pool: pool}
}

// CreateRun stores a run in RUNNING state.
func (r *ReportsRepository) CreateRun(ctx context.Context, run *Run) error {
	if run.Status == "" {
		run.Status = RunStatusRunning
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO scan_runs (id, sessions, channels, message_limit, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.Sessions, run.Channels, run.MessageLimit, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run finished and stores its deduplicated records.
// runErr non-nil marks the run FAILED.
func (r *ReportsRepository) CompleteRun(ctx context.Context, id uuid.UUID, records []models.RepostRecord, finishedAt time.Time, runErr error) error {
	status := RunStatusCompleted
	var errText *string
	if runErr != nil {
		status = RunStatusFailed
		s := runErr.Error()
		errText = &s
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE scan_runs SET status = $2, error = $3, finished_at = $4
		WHERE id = $1
	`, id, status, errText, finishedAt)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update run %s: not found", id)
	}

	if len(records) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"repost_records"},
			[]string{"run_id", "position", "original_channel_title", "original_channel_link", "message_excerpt", "message_timestamp"},
			pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
				rec := records[i]
				return []any{id, i, rec.OriginalChannelTitle, rec.OriginalChannelLink, rec.MessageExcerpt, rec.MessageTimestamp}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy records: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRun returns a run with its records, or nil if it does not exist.
func (r *ReportsRepository) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	run := &Run{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, sessions, channels, message_limit, status, error, started_at, finished_at
		FROM scan_runs WHERE id = $1
	`, id).Scan(&run.ID, &run.Sessions, &run.Channels, &run.MessageLimit,
		&run.Status, &run.Error, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT original_channel_title, original_channel_link, message_excerpt, message_timestamp
		FROM repost_records WHERE run_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get records: %w", err)
	}

	run.Records, err = pgx.CollectRows(rows, pgx.RowToStructByPos[models.RepostRecord])
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	return run, nil
}

// ListRuns returns the latest runs without their records, newest first.
func (r *ReportsRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, sessions, channels, message_limit, status, error, started_at, finished_at
		FROM scan_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Sessions, &run.Channels, &run.MessageLimit,
			&run.Status, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
