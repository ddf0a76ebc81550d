package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/candidate-contact-scraper/internal/database"
	"github.com/maltedev/candidate-contact-scraper/internal/jobs"
	"github.com/maltedev/candidate-contact-scraper/internal/queue"
)

// RunManager is the part of jobs.Manager the handlers use.
type RunManager interface {
	CreateRun(ctx context.Context, urls []string, searchQuery string) (*jobs.Run, error)
	GetRun(ctx context.Context, id string) (*jobs.Run, error)
	ListRuns(ctx context.Context) []*jobs.Run
	GetStats(ctx context.Context) jobs.Stats
}

// Pacer adjusts the delay between profiles of the running orchestrator.
type Pacer interface {
	SetBaseDelay(ms float64) error
	BaseDelay() time.Duration
}

// OutboxCounter reports outbox events per status. Nil when running without
// a database.
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type Handlers struct {
	runs   RunManager
	pacer  Pacer
	outbox OutboxCounter
	logger *slog.Logger
}

func NewHandlers(runs RunManager, pacer Pacer, outbox OutboxCounter, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		runs:   runs,
		pacer:  pacer,
		outbox: outbox,
		logger: logger.With("component", "api"),
	}
}

// CreateRunRequest represents a new scrape run request
type CreateRunRequest struct {
	URLs        []string `json:"urls"`
	SearchQuery string   `json:"search_query"`
}

type CreateRunResponse struct {
	RunID   string      `json:"run_id"`
	Status  jobs.Status `json:"status"`
	Message string      `json:"message"`
}

// CreateRun enqueues a run over the given profile URLs
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := h.runs.CreateRun(r.Context(), req.URLs, req.SearchQuery)
	switch {
	case errors.Is(err, jobs.ErrNoURLs):
		h.respondError(w, http.StatusBadRequest, "urls is required")
		return
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		h.respondError(w, http.StatusServiceUnavailable, "run queue is not accepting work")
		return
	case err != nil:
		h.logger.Error("failed to create run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateRunResponse{
		RunID:   run.ID,
		Status:  run.Status,
		Message: "Run queued",
	})
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.ListRuns(r.Context()))
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.GetStats(r.Context()))
}

type PacingRequest struct {
	BaseDelayMs float64 `json:"base_delay_ms"`
}

type PacingResponse struct {
	BaseDelayMs int64 `json:"base_delay_ms"`
}

func (h *Handlers) GetPacing(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, PacingResponse{BaseDelayMs: h.pacer.BaseDelay().Milliseconds()})
}

// SetPacing changes the base delay, effective from the next pause on.
func (h *Handlers) SetPacing(w http.ResponseWriter, r *http.Request) {
	var req PacingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.pacer.SetBaseDelay(req.BaseDelayMs); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("base delay changed", "base_delay", h.pacer.BaseDelay())
	h.respondJSON(w, http.StatusOK, PacingResponse{BaseDelayMs: h.pacer.BaseDelay().Milliseconds()})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{"status": "ok"}
	status := http.StatusOK

	if h.outbox != nil {
		counts, err := h.outbox.CountByStatus(r.Context())
		if err != nil {
			h.logger.Error("failed to count outbox events", "error", err)
			health["status"] = "error"
			health["message"] = "outbox unavailable"
			h.respondJSON(w, http.StatusServiceUnavailable, health)
			return
		}

		pending := counts[database.OutboxStatusPending] + counts[database.OutboxStatusFailed]
		deadLetter := counts[database.OutboxStatusDeadLetter]
		health["outbox"] = map[string]int64{
			"pending":     pending,
			"dead_letter": deadLetter,
		}

		if pending > 1000 {
			health["status"] = "warning"
			health["message"] = "High number of pending outbox events"
		}
		if deadLetter > 100 {
			health["status"] = "error"
			health["message"] = "High number of dead letter events"
			status = http.StatusServiceUnavailable
		}
	}

	h.respondJSON(w, status, health)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
