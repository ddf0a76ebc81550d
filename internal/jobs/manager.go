package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/maltedev/candidate-contact-scraper/internal/queue"
	"github.com/maltedev/candidate-contact-scraper/internal/scraper"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// maxRunErrors bounds the error events kept per run.
const maxRunErrors = 100

var (
	ErrRunNotFound = errors.New("run not found")
	ErrNoURLs      = errors.New("at least one profile URL is required")
)

// Processor is satisfied by *scraper.Sequential.
type Processor interface {
	Process(ctx context.Context, urls []string, extract scraper.ExtractFunc, save scraper.SaveFunc, run scraper.RunContext) scraper.RunStats
}

// Run represents a scrape run over a list of profile URLs
type Run struct {
	ID          string               `json:"id"`
	Status      Status               `json:"status"`
	SearchQuery string               `json:"search_query,omitempty"`
	URLs        []string             `json:"urls"`
	Stats       scraper.RunStats     `json:"stats"`
	Errors      []scraper.ErrorEvent `json:"errors,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// Stats summarises the runs known to the manager
type Stats struct {
	TotalRuns         int `json:"total_runs"`
	PendingRuns       int `json:"pending_runs"`
	RunningRuns       int `json:"running_runs"`
	CompletedRuns     int `json:"completed_runs"`
	CancelledRuns     int `json:"cancelled_runs"`
	ProfilesSucceeded int `json:"profiles_succeeded"`
	ProfilesFailed    int `json:"profiles_failed"`
}

type Config struct {
	Queue     queue.Queue
	Processor Processor
	Extract   scraper.ExtractFunc
	Save      scraper.SaveFunc
	// Page is the one page every run is driven on.
	Page browser.Page
}

// Manager registers runs and executes them one at a time.
type Manager struct {
	queue     queue.Queue
	processor Processor
	extract   scraper.ExtractFunc
	save      scraper.SaveFunc
	page      browser.Page
	logger    *slog.Logger

	mu   sync.RWMutex
	runs map[string]*Run
}

func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		queue:     cfg.Queue,
		processor: cfg.Processor,
		extract:   cfg.Extract,
		save:      cfg.Save,
		page:      cfg.Page,
		logger:    logger.With("component", "run_manager"),
		runs:      make(map[string]*Run),
	}
}

// CreateRun registers and enqueues a run. Blank URLs are dropped.
func (m *Manager) CreateRun(ctx context.Context, urls []string, searchQuery string) (*Run, error) {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	if len(cleaned) == 0 {
		return nil, ErrNoURLs
	}

	run := &Run{
		ID:          uuid.New().String(),
		Status:      StatusPending,
		SearchQuery: searchQuery,
		URLs:        cleaned,
		CreatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	err := m.queue.Push(&queue.Task{
		ID:          run.ID,
		URLs:        cleaned,
		SearchQuery: searchQuery,
		CreatedAt:   run.CreatedAt,
	})
	if err != nil {
		m.mu.Lock()
		delete(m.runs, run.ID)
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to enqueue run: %w", err)
	}

	m.logger.Info("run created", "id", run.ID, "urls", len(cleaned), "query", searchQuery)
	return m.snapshot(run), nil
}

func (m *Manager) GetRun(_ context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return m.snapshotLocked(run), nil
}

// ListRuns returns every run, newest first.
func (m *Manager) ListRuns(_ context.Context) []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, m.snapshotLocked(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

func (m *Manager) GetStats(_ context.Context) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats Stats
	for _, run := range m.runs {
		stats.TotalRuns++
		switch run.Status {
		case StatusPending:
			stats.PendingRuns++
		case StatusRunning:
			stats.RunningRuns++
		case StatusCompleted:
			stats.CompletedRuns++
		case StatusCancelled:
			stats.CancelledRuns++
		}
		stats.ProfilesSucceeded += run.Stats.Succeeded
		stats.ProfilesFailed += run.Stats.Failed
	}
	return stats
}

func (m *Manager) snapshot(run *Run) *Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(run)
}

func (m *Manager) snapshotLocked(run *Run) *Run {
	cp := *run
	cp.URLs = append([]string(nil), run.URLs...)
	cp.Errors = append([]scraper.ErrorEvent(nil), run.Errors...)
	return &cp
}

func (m *Manager) update(id string, fn func(*Run)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run, ok := m.runs[id]; ok {
		fn(run)
	}
}
