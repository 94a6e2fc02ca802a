package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blockedby/repost-tracer/internal/logger"
	"github.com/blockedby/repost-tracer/internal/models"
	"github.com/blockedby/repost-tracer/internal/telegram"
)

// DefaultLimit is used when a task carries no message limit.
const DefaultLimit = 100

// history page size, the telegram api maximum
const batchSize = 100

// Task is a planned scan of one channel through one session.
type Task struct {
	models.ScanTask
	Handle telegram.SessionHandle
}

// TaskResult is what a finished task hands back. Records is empty whenever
// Outcome.Status is not OK.
type TaskResult struct {
	Outcome models.TaskOutcome
	Records []models.RepostRecord
}

// Scanner reads one channel through one session.
type Scanner struct {
	connector Connector
	resolver  *Resolver
	log       *logger.Logger
}

// NewScanner creates a scanner.
func NewScanner(connector Connector, resolver *Resolver, log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Get()
	}
	return &Scanner{
		connector: connector,
		resolver:  resolver,
		log:       log,
	}
}

// Scan runs task to completion. It never returns an error and never panics:
// every failure becomes an empty result with a diagnostic outcome.
func (s *Scanner) Scan(ctx context.Context, task Task) (res TaskResult) {
	start := time.Now()
	res.Outcome = models.TaskOutcome{Task: task.ScanTask, Status: models.TaskStatusOK}

	log := s.log.With().
		Str("session", task.Session).
		Str("channel", task.Channel).
		Logger()

	defer func() {
		if p := recover(); p != nil {
			res.Records = nil
			res.Outcome.Status = models.TaskStatusFailed
			res.Outcome.Error = fmt.Sprintf("panic: %v", p)
			res.Outcome.Records = 0
		}
		res.Outcome.Duration = time.Since(start)

		ev := log.Info()
		if res.Outcome.Failed() {
			ev = log.Warn().Str("error", res.Outcome.Error)
		}
		ev.Str("status", string(res.Outcome.Status)).
			Int("scanned", res.Outcome.Scanned).
			Int("records", res.Outcome.Records).
			Dur("took", res.Outcome.Duration).
			Msg("scan task finished")
	}()

	log.Debug().Int("limit", task.Limit).Msg("scan task started")

	var records []models.RepostRecord
	scanned := 0
	err := s.connector.Run(ctx, task.Handle, func(ctx context.Context, api API) (err error) {
		// gotd calls fn from its own goroutine, out of reach of the recover above
		defer func() {
			if p := recover(); p != nil {
				records = nil
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		records, scanned, err = s.scanChannel(ctx, api, task)
		return err
	})

	res.Outcome.Scanned = scanned
	if err != nil {
		res.Outcome.Status = statusFor(err)
		res.Outcome.Error = err.Error()
		return res
	}

	res.Records = records
	res.Outcome.Records = len(records)
	return res
}

// scanChannel walks the channel history newest first, at most task.Limit
// messages, keeping records in fetch order.
func (s *Scanner) scanChannel(ctx context.Context, api API, task Task) ([]models.RepostRecord, int, error) {
	authorized, err := api.IsAuthorized(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("check authorization: %w", err)
	}
	if !authorized {
		return nil, 0, telegram.ErrUnauthorized
	}

	channel, err := api.ResolveChannel(ctx, task.Channel)
	if err != nil {
		return nil, 0, err
	}

	limit := task.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var records []models.RepostRecord
	scanned := 0
	offsetID := 0

	for scanned < limit {
		want := min(limit-scanned, batchSize)

		messages, err := api.GetMessages(ctx, channel, offsetID, want)
		if err != nil {
			return nil, scanned, err
		}
		if len(messages) == 0 {
			break
		}

		for _, msg := range messages {
			if scanned == limit {
				break
			}
			scanned++

			rec, ok, err := s.resolver.Resolve(ctx, api, msg)
			if err != nil {
				return nil, scanned, err
			}
			if ok {
				records = append(records, rec)
			}
		}

		// a short page means the start of history was reached
		if len(messages) < want {
			break
		}
		offsetID = messages[len(messages)-1].ID
	}

	return records, scanned, nil
}

func statusFor(err error) models.TaskStatus {
	switch {
	case errors.Is(err, telegram.ErrUnauthorized):
		return models.TaskStatusUnauthorized
	case errors.Is(err, telegram.ErrPasswordNeeded):
		return models.TaskStatusPasswordNeeded
	default:
		return models.TaskStatusFailed
	}
}
