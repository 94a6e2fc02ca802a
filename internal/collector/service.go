// Package collector runs scan requests end to end and serves them over HTTP.
package collector

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/repost-tracer/internal/logger"
	"github.com/blockedby/repost-tracer/internal/models"
	"github.com/blockedby/repost-tracer/internal/report"
	"github.com/blockedby/repost-tracer/internal/repository"
	"github.com/blockedby/repost-tracer/internal/scanner"
	"github.com/blockedby/repost-tracer/internal/telegram"
	"github.com/blockedby/repost-tracer/internal/web"
)

// Orchestrator fans a run out over sessions and channels.
type Orchestrator interface {
	Run(ctx context.Context, sessions []telegram.SessionHandle, channels []string, limit int, progress scanner.ProgressFunc) scanner.RunResult
}

// ReportStore persists runs and their records.
type ReportStore interface {
	CreateRun(ctx context.Context, run *repository.Run) error
	CompleteRun(ctx context.Context, id uuid.UUID, records []models.RepostRecord, finishedAt time.Time, runErr error) error
}

// TaskLogStore persists per-task outcomes.
type TaskLogStore interface {
	SaveOutcomes(ctx context.Context, runID uuid.UUID, outcomes []models.TaskOutcome) error
}

// EventPublisher publishes run events
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, event RunCompletedEvent) error
}

// Broadcaster pushes messages to live websocket clients.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// RunCompletedEvent represents a finished run for NATS
type RunCompletedEvent struct {
	RunID          uuid.UUID             `json:"run_id"`
	Sessions       []string              `json:"sessions"`
	Channels       []string              `json:"channels"`
	Records        int                   `json:"records"`
	UniqueChannels int                   `json:"unique_channels"`
	FailedTasks    int                   `json:"failed_tasks"`
	Top            []models.ChannelCount `json:"top"`
	PublicLinks    []string              `json:"public_links"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     time.Time             `json:"finished_at"`
}

// Request is a validated scan request.
type Request struct {
	Channels []string
	Sessions []telegram.SessionHandle
	Limit    int
}

// SessionNames lists the session names of r in order.
func (r Request) SessionNames() []string {
	names := make([]string, len(r.Sessions))
	for i, s := range r.Sessions {
		names[i] = s.Name
	}
	return names
}

// Result is a finished run.
type Result struct {
	ID         uuid.UUID
	Request    Request
	StartedAt  time.Time
	FinishedAt time.Time
	Report     *report.Report
	Outcomes   []models.TaskOutcome
	Error      string // set when the run was cut short
}

// FailedTasks counts outcomes that produced nothing because of an error.
func (r *Result) FailedTasks() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Service runs a scan and hands the report to storage, NATS and websocket
// clients. Every sink is optional.
type Service struct {
	orchestrator Orchestrator
	reports      ReportStore
	taskLogs     TaskLogStore
	publisher    EventPublisher
	hub          Broadcaster
	log          *logger.Logger
}

// NewService creates a new collector service
func NewService(
	orchestrator Orchestrator,
	reports ReportStore,
	taskLogs TaskLogStore,
	publisher EventPublisher,
	hub Broadcaster,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Get()
	}
	return &Service{
		orchestrator: orchestrator,
		reports:      reports,
		taskLogs:     taskLogs,
		publisher:    publisher,
		hub:          hub,
		log:          log,
	}
}

// Analyze scans every requested channel with every requested session and
// aggregates the findings. A canceled ctx still yields the report of the
// tasks that finished, together with ctx's error.
func (s *Service) Analyze(ctx context.Context, id uuid.UUID, req Request, progress scanner.ProgressFunc) (*Result, error) {
	sessions := req.SessionNames()
	started := time.Now()

	log := s.log.With().Str("scan_id", id.String()).Logger()
	log.Info().
		Strs("sessions", sessions).
		Int("channels", len(req.Channels)).
		Int("limit", req.Limit).
		Msg("starting scan")

	s.broadcast(web.ScanStartEvent(id, sessions, req.Channels, req.Limit))

	if s.reports != nil {
		err := s.reports.CreateRun(ctx, &repository.Run{
			ID:           id,
			Sessions:     sessions,
			Channels:     req.Channels,
			MessageLimit: req.Limit,
			StartedAt:    started,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to store run")
		}
	}

	run := s.orchestrator.Run(ctx, req.Sessions, req.Channels, req.Limit, func(done, total int, outcome models.TaskOutcome) {
		s.broadcast(web.ScanTaskEvent(id, done, total, outcome))
		if progress != nil {
			progress(done, total, outcome)
		}
	})

	res := &Result{
		ID:         id,
		Request:    req,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Report:     report.Aggregate(run.Records),
		Outcomes:   run.Outcomes,
	}
	runErr := ctx.Err()
	if runErr != nil {
		res.Error = runErr.Error()
	}

	// sinks must not be skipped because the run itself was canceled
	sinkCtx := context.WithoutCancel(ctx)
	s.store(sinkCtx, res, runErr)

	if runErr == nil && s.publisher != nil {
		if err := s.publisher.PublishRunCompleted(sinkCtx, s.completedEvent(res)); err != nil {
			log.Warn().Err(err).Msg("failed to publish run event")
		}
	}

	s.broadcast(web.ScanEndEvent(id, web.ScanEndPayload{
		Records:        len(res.Report.Records),
		UniqueChannels: res.Report.UniqueChannels(),
		FailedTasks:    res.FailedTasks(),
		Top:            res.Report.Top(report.DefaultTop),
		Took:           res.FinishedAt.Sub(started),
		Error:          res.Error,
	}))

	log.Info().
		Int("records", len(res.Report.Records)).
		Int("unique_channels", res.Report.UniqueChannels()).
		Int("failed_tasks", res.FailedTasks()).
		Dur("took", res.FinishedAt.Sub(started)).
		Msg("scan completed")

	return res, runErr
}

func (s *Service) store(ctx context.Context, res *Result, runErr error) {
	if s.reports != nil {
		if err := s.reports.CompleteRun(ctx, res.ID, res.Report.Records, res.FinishedAt, runErr); err != nil {
			s.log.Warn().Err(err).Str("scan_id", res.ID.String()).Msg("failed to store report")
		}
	}
	if s.taskLogs != nil {
		if err := s.taskLogs.SaveOutcomes(ctx, res.ID, res.Outcomes); err != nil {
			s.log.Warn().Err(err).Str("scan_id", res.ID.String()).Msg("failed to store task logs")
		}
	}
}

func (s *Service) completedEvent(res *Result) RunCompletedEvent {
	return RunCompletedEvent{
		RunID:          res.ID,
		Sessions:       res.Request.SessionNames(),
		Channels:       res.Request.Channels,
		Records:        len(res.Report.Records),
		UniqueChannels: res.Report.UniqueChannels(),
		FailedTasks:    res.FailedTasks(),
		Top:            res.Report.Top(report.DefaultTop),
		PublicLinks:    res.Report.PublicLinks,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
	}
}

func (s *Service) broadcast(msg []byte) {
	if s.hub != nil {
		s.hub.Broadcast(msg)
	}
}
