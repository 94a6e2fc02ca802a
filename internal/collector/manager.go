package collector

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/repost-tracer/internal/models"
	"github.com/blockedby/repost-tracer/internal/scanner"
)

// errors
var (
	ErrAlreadyRunning = errors.New("a scan is already running")
)

// finished runs kept in memory for the result endpoints
const keepResults = 16

// Runner executes one scan. *Service implements it.
type Runner interface {
	Analyze(ctx context.Context, id uuid.UUID, req Request, progress scanner.ProgressFunc) (*Result, error)
}

// ScanJob represents an active scan
type ScanJob struct {
	ID        uuid.UUID
	StartedAt time.Time
	Request   Request
	Done      int
	Total     int
}

// ScanManager manages background scans
// ensures only one scan runs at a time
// thread-safe
type ScanManager struct {
	mu       sync.Mutex
	current  *ScanJob
	cancelFn context.CancelFunc
	runner   Runner

	results map[uuid.UUID]*Result
	order   []uuid.UUID
}

// NewScanManager creates a new scan manager
func NewScanManager(runner Runner) *ScanManager {
	return &ScanManager{
		runner:  runner,
		results: make(map[uuid.UUID]*Result),
	}
}

// Start starts a new scan in the background
// returns ErrAlreadyRunning if a scan is already running
func (m *ScanManager) Start(_ context.Context, req Request) (*ScanJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, ErrAlreadyRunning
	}

	// detached from the request context so the scan outlives the response
	scanCtx, cancel := context.WithCancel(context.Background())
	m.cancelFn = cancel

	job := &ScanJob{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Request:   req,
		Total:     len(req.Sessions) * len(req.Channels),
	}
	m.current = job

	go m.run(scanCtx, job)

	snapshot := *job
	return &snapshot, nil
}

// Stop cancels the current scan
// safe to call when no scan is running; the partial result is still kept
func (m *ScanManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelFn != nil {
		m.cancelFn()
		m.cancelFn = nil
	}
}

// Current returns a snapshot of the running scan
// returns nil if no scan is running
func (m *ScanManager) Current() *ScanJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	snapshot := *m.current
	return &snapshot
}

// Result returns a finished scan kept in memory.
func (m *ScanManager) Result(id uuid.UUID) (*Result, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.results[id]
	return res, ok
}

// Results returns the finished scans kept in memory, newest first.
func (m *ScanManager) Results() []*Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Result, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.results[m.order[i]])
	}
	return out
}

// run executes the scan
// this is called in a goroutine
func (m *ScanManager) run(ctx context.Context, job *ScanJob) {
	var res *Result
	defer func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if res != nil {
			m.keep(res)
		}
		if m.current != nil && m.current.ID == job.ID {
			m.current = nil
			if m.cancelFn != nil {
				m.cancelFn()
				m.cancelFn = nil
			}
		}
	}()

	if m.runner == nil {
		return
	}

	// errors are logged inside Analyze; a canceled run still has a result
	res, _ = m.runner.Analyze(ctx, job.ID, job.Request, func(done, total int, _ models.TaskOutcome) {
		m.mu.Lock()
		job.Done = done
		job.Total = total
		m.mu.Unlock()
	})
}

// keep must be called with mu held.
func (m *ScanManager) keep(res *Result) {
	if _, ok := m.results[res.ID]; !ok {
		m.order = append(m.order, res.ID)
	}
	m.results[res.ID] = res

	for len(m.order) > keepResults {
		delete(m.results, m.order[0])
		m.order = m.order[1:]
	}
}
