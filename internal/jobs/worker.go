package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/queue"
	"github.com/maltedev/candidate-contact-scraper/internal/scraper"
)

// StartWorker executes queued runs in order until ctx is done or the queue
// is closed. Only one run touches the page at a time.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("run worker started")

	for {
		task, err := m.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || ctx.Err() != nil {
				m.logger.Info("run worker stopping")
				return
			}
			m.logger.Error("failed to pop run", "error", err)
			continue
		}

		m.processTask(ctx, task)
	}
}

func (m *Manager) processTask(ctx context.Context, task *queue.Task) {
	log := m.logger.With("run", task.ID)

	started := time.Now()
	m.update(task.ID, func(r *Run) {
		r.Status = StatusRunning
		r.StartedAt = &started
	})
	log.Info("processing run", "urls", len(task.URLs))

	stats := m.processor.Process(ctx, task.URLs, m.extract, m.save, scraper.RunContext{
		Page:        m.page,
		SearchQuery: task.SearchQuery,
		OnProfile: func(ev scraper.ProfileEvent) {
			m.update(task.ID, func(r *Run) {
				r.Stats.Processed++
				r.Stats.Succeeded++
			})
		},
		OnError: func(ev scraper.ErrorEvent) {
			m.update(task.ID, func(r *Run) {
				r.Stats.Processed++
				r.Stats.Failed++
				if len(r.Errors) < maxRunErrors {
					r.Errors = append(r.Errors, ev)
				}
			})
		},
	})

	status := StatusCompleted
	if stats.Processed < len(task.URLs) && ctx.Err() != nil {
		status = StatusCancelled
	}

	completed := time.Now()
	m.update(task.ID, func(r *Run) {
		r.Status = status
		r.Stats = stats
		r.CompletedAt = &completed
	})

	log.Info("run finished",
		"status", status,
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"duration", completed.Sub(started))
}
