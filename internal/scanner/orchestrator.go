package scanner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blockedby/repost-tracer/internal/logger"
	"github.com/blockedby/repost-tracer/internal/models"
	"github.com/blockedby/repost-tracer/internal/telegram"
)

// TaskScanner runs a single task. *Scanner implements it.
type TaskScanner interface {
	Scan(ctx context.Context, task Task) TaskResult
}

// ProgressFunc is called once per finished task. Calls are serialized.
type ProgressFunc func(done, total int, outcome models.TaskOutcome)

// RunResult is the merged output of every task of a run.
type RunResult struct {
	Records  []models.RepostRecord // concatenated in task submission order
	Outcomes []models.TaskOutcome  // one per task, in submission order
	Started  time.Time
	Finished time.Time
}

// Orchestrator fans a run out to one task per (session, channel) pair and
// joins them.
type Orchestrator struct {
	scanner     TaskScanner
	concurrency int
	log         *logger.Logger
}

// NewOrchestrator creates an orchestrator. concurrency <= 0 starts every task
// at once.
func NewOrchestrator(scanner TaskScanner, concurrency int, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Get()
	}
	return &Orchestrator{
		scanner:     scanner,
		concurrency: concurrency,
		log:         log,
	}
}

// BuildTasks plans one task per (session, channel) pair, sessions in the
// outer loop.
func BuildTasks(sessions []telegram.SessionHandle, channels []string, limit int) []Task {
	tasks := make([]Task, 0, len(sessions)*len(channels))
	for _, sess := range sessions {
		for _, ch := range channels {
			tasks = append(tasks, Task{
				ScanTask: models.ScanTask{
					Index:   len(tasks),
					Session: sess.Name,
					Channel: ch,
					Limit:   limit,
				},
				Handle: sess,
			})
		}
	}
	return tasks
}

// Run scans every channel with every session concurrently and waits for all
// tasks. A failing task contributes nothing but never stops the others.
// There is no per-task timeout; bound the whole run through ctx.
func (o *Orchestrator) Run(ctx context.Context, sessions []telegram.SessionHandle, channels []string, limit int, progress ProgressFunc) RunResult {
	tasks := BuildTasks(sessions, channels, limit)
	result := RunResult{Started: time.Now()}

	o.log.Info().
		Int("sessions", len(sessions)).
		Int("channels", len(channels)).
		Int("tasks", len(tasks)).
		Int("limit", limit).
		Msg("scan run started")

	results := make([]TaskResult, len(tasks))

	var (
		g    errgroup.Group
		mu   sync.Mutex
		done int
	)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = o.scanner.Scan(ctx, task)

			if progress != nil {
				mu.Lock()
				done++
				progress(done, len(tasks), results[i].Outcome)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	result.Outcomes = make([]models.TaskOutcome, len(results))
	for i, r := range results {
		result.Records = append(result.Records, r.Records...)
		result.Outcomes[i] = r.Outcome
	}
	result.Finished = time.Now()

	failed := 0
	for _, out := range result.Outcomes {
		if out.Failed() {
			failed++
		}
	}
	o.log.Info().
		Int("records", len(result.Records)).
		Int("failed_tasks", failed).
		Dur("took", result.Finished.Sub(result.Started)).
		Msg("scan run finished")

	return result
}
