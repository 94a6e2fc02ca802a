package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/blockedby/repost-tracer/internal/logger"
	"github.com/blockedby/repost-tracer/internal/models"
	"github.com/blockedby/repost-tracer/internal/report"
	"github.com/blockedby/repost-tracer/internal/repository"
	"github.com/blockedby/repost-tracer/internal/telegram"
)

// SessionLister returns the session files currently available.
type SessionLister func() ([]telegram.SessionHandle, error)

// RunReader loads stored runs.
type RunReader interface {
	GetRun(ctx context.Context, id uuid.UUID) (*repository.Run, error)
	ListRuns(ctx context.Context, limit int) ([]repository.Run, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// TaskLogReader loads stored task outcomes.
type TaskLogReader interface {
	ListByRun(ctx context.Context, runID uuid.UUID) ([]models.TaskOutcome, error)
	FailureCounts(ctx context.Context, session string) (map[models.TaskStatus]int, error)
}

// Handler handles HTTP requests for collector service
type Handler struct {
	manager     *ScanManager
	sessions    SessionLister
	runs        RunReader
	taskLogs    TaskLogReader
	maxChannels int
}

// NewHandler creates a new handler. runs and taskLogs may be nil when
// persistence is disabled.
func NewHandler(manager *ScanManager, sessions SessionLister, runs RunReader, taskLogs TaskLogReader, maxChannels int) *Handler {
	return &Handler{
		manager:     manager,
		sessions:    sessions,
		runs:        runs,
		taskLogs:    taskLogs,
		maxChannels: maxChannels,
	}
}

// SessionInfo describes one available session
type SessionInfo struct {
	Name     string                    `json:"name"`
	Failures map[models.TaskStatus]int `json:"failures,omitempty"`
}

// ScanResult is the JSON view of a finished scan
type ScanResult struct {
	ScanID         uuid.UUID             `json:"scan_id"`
	Status         string                `json:"status"`
	Error          string                `json:"error,omitempty"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     *time.Time            `json:"finished_at,omitempty"`
	Sessions       []string              `json:"sessions"`
	Channels       []string              `json:"channels"`
	Limit          int                   `json:"limit"`
	UniqueChannels int                   `json:"unique_channels"`
	Ranking        []models.ChannelCount `json:"ranking"`
	PublicLinks    []string              `json:"public_links"`
	Records        []models.RepostRecord `json:"records"`
	Outcomes       []models.TaskOutcome  `json:"outcomes,omitempty"`
}

// ScanSummary is one entry of the scan history
type ScanSummary struct {
	ScanID     uuid.UUID  `json:"scan_id"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Sessions   []string   `json:"sessions"`
	Channels   []string   `json:"channels"`
	Limit      int        `json:"limit"`
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	scan := "idle"
	if h.manager.Current() != nil {
		scan = "running"
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"scan":   scan,
		"time":   time.Now().Format(time.RFC3339),
	})
}

// ListSessions handles GET /api/v1/sessions
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	handles, err := h.sessions()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]SessionInfo, 0, len(handles))
	for _, s := range handles {
		info := SessionInfo{Name: s.Name}
		if h.taskLogs != nil {
			failures, err := h.taskLogs.FailureCounts(r.Context(), s.Name)
			if err != nil {
				logger.Get().Warn().Err(err).Str("session", s.Name).Msg("failed to load session failures")
			} else if len(failures) > 0 {
				info.Failures = failures
			}
		}
		out = append(out, info)
	}

	respondJSON(w, http.StatusOK, out)
}

// StartScan handles POST /api/v1/scans
func (h *Handler) StartScan(w http.ResponseWriter, r *http.Request) {
	var body ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	available, err := h.sessions()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	req, err := body.Validate(available, h.maxChannels)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.manager.Start(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusAccepted, ScanResponse{
		ScanID:    job.ID,
		Status:    "running",
		StartedAt: job.StartedAt,
		Sessions:  req.SessionNames(),
		Channels:  req.Channels,
		Limit:     req.Limit,
		Tasks:     job.Total,
	})
}

// ListScans handles GET /api/v1/scans
// newest first; stored runs when persistence is on, otherwise the ones kept
// in memory
func (h *Handler) ListScans(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	out := make([]ScanSummary, 0, limit)
	if h.runs != nil {
		runs, err := h.runs.ListRuns(r.Context(), limit)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for i := range runs {
			out = append(out, storedSummary(&runs[i]))
		}
	} else {
		for _, res := range h.manager.Results() {
			if len(out) == limit {
				break
			}
			out = append(out, resultSummary(res))
		}
	}

	respondJSON(w, http.StatusOK, out)
}

// CurrentScan handles GET /api/v1/scans/current
func (h *Handler) CurrentScan(w http.ResponseWriter, r *http.Request) {
	current := h.manager.Current()
	if current == nil {
		respondJSON(w, http.StatusOK, map[string]string{
			"status": "idle",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "running",
		"scan_id":    current.ID.String(),
		"started_at": current.StartedAt.Format(time.RFC3339),
		"done":       current.Done,
		"total":      current.Total,
	})
}

// StopScan handles DELETE /api/v1/scans/current
func (h *Handler) StopScan(w http.ResponseWriter, r *http.Request) {
	h.manager.Stop()
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "scan stopped",
	})
}

// GetScan handles GET /api/v1/scans/{id}
func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	id, ok := parseScanID(w, r)
	if !ok {
		return
	}

	if current := h.manager.Current(); current != nil && current.ID == id {
		respondJSON(w, http.StatusOK, map[string]any{
			"scan_id": id.String(),
			"status":  "running",
			"done":    current.Done,
			"total":   current.Total,
		})
		return
	}

	res, err := h.lookup(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if res == nil {
		respondError(w, http.StatusNotFound, "scan not found")
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// ExportCSV handles GET /api/v1/scans/{id}/csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := parseScanID(w, r)
	if !ok {
		return
	}

	res, err := h.lookup(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if res == nil {
		respondError(w, http.StatusNotFound, "scan not found")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.FileName(id.String())+`"`)
	w.WriteHeader(http.StatusOK)
	if err := report.WriteCSV(w, res.Records); err != nil {
		logger.Get().Warn().Err(err).Str("scan_id", id.String()).Msg("csv export interrupted")
	}
}

// lookup finds a finished scan in memory first, then in the database.
// It returns nil when neither has it.
func (h *Handler) lookup(ctx context.Context, id uuid.UUID) (*ScanResult, error) {
	if res, ok := h.manager.Result(id); ok {
		return resultView(res), nil
	}
	if h.runs == nil {
		return nil, nil
	}

	run, err := h.runs.GetRun(ctx, id)
	if err != nil || run == nil {
		return nil, err
	}

	view := storedView(run)
	if h.taskLogs != nil {
		outcomes, err := h.taskLogs.ListByRun(ctx, id)
		if err != nil {
			logger.Get().Warn().Err(err).Str("scan_id", id.String()).Msg("failed to load task logs")
		}
		view.Outcomes = outcomes
	}
	return view, nil
}

func resultView(res *Result) *ScanResult {
	status := "completed"
	if res.Error != "" {
		status = "failed"
	}
	finished := res.FinishedAt
	return &ScanResult{
		ScanID:         res.ID,
		Status:         status,
		Error:          res.Error,
		StartedAt:      res.StartedAt,
		FinishedAt:     &finished,
		Sessions:       res.Request.SessionNames(),
		Channels:       res.Request.Channels,
		Limit:          res.Request.Limit,
		UniqueChannels: res.Report.UniqueChannels(),
		Ranking:        res.Report.Ranking,
		PublicLinks:    res.Report.PublicLinks,
		Records:        res.Report.Records,
		Outcomes:       res.Outcomes,
	}
}

func storedView(run *repository.Run) *ScanResult {
	// stored records are already deduplicated; aggregating again only ranks them
	rep := report.Aggregate(run.Records)

	view := &ScanResult{
		ScanID:         run.ID,
		Status:         statusName(run.Status),
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		Sessions:       run.Sessions,
		Channels:       run.Channels,
		Limit:          run.MessageLimit,
		UniqueChannels: rep.UniqueChannels(),
		Ranking:        rep.Ranking,
		PublicLinks:    rep.PublicLinks,
		Records:        rep.Records,
	}
	if run.Error != nil {
		view.Error = *run.Error
	}
	return view
}

func resultSummary(res *Result) ScanSummary {
	v := resultView(res)
	return ScanSummary{
		ScanID:     v.ScanID,
		Status:     v.Status,
		Error:      v.Error,
		StartedAt:  v.StartedAt,
		FinishedAt: v.FinishedAt,
		Sessions:   v.Sessions,
		Channels:   v.Channels,
		Limit:      v.Limit,
	}
}

func storedSummary(run *repository.Run) ScanSummary {
	sum := ScanSummary{
		ScanID:     run.ID,
		Status:     statusName(run.Status),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Sessions:   run.Sessions,
		Channels:   run.Channels,
		Limit:      run.MessageLimit,
	}
	if run.Error != nil {
		sum.Error = *run.Error
	}
	return sum
}

func statusName(status string) string {
	switch status {
	case repository.RunStatusCompleted:
		return "completed"
	case repository.RunStatusFailed:
		return "failed"
	default:
		return "running"
	}
}

func parseScanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid scan id")
		return uuid.Nil, false
	}
	return id, true
}

// helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
