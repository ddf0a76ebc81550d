package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
	"github.com/maltedev/candidate-contact-scraper/internal/ratelimit"
)

const DefaultIdleProbability = 0.3

type RunStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type ProfileEvent struct {
	URL     string              `json:"url"`
	Profile *models.ProfileData `json:"profile"`
	Index   int                 `json:"index"`
	Total   int                 `json:"total"`
}

type ErrorEvent struct {
	URL   string           `json:"url"`
	Error string           `json:"error"`
	Code  models.ErrorCode `json:"code"`
	Index int              `json:"index"`
}

// RunContext carries the per-run collaborators. Every field is optional.
type RunContext struct {
	Page        browser.Page
	SearchQuery string
	OnProfile   func(ProfileEvent)
	OnError     func(ErrorEvent)
}

type SequentialConfig struct {
	BaseDelay       time.Duration
	Adaptive        ratelimit.AdaptiveConfig
	IdleProbability float64
}

func DefaultSequentialConfig() SequentialConfig {
	return SequentialConfig{
		BaseDelay:       ratelimit.DefaultBaseDelay,
		Adaptive:        ratelimit.DefaultAdaptiveConfig(),
		IdleProbability: DefaultIdleProbability,
	}
}

// Sequential processes profile targets one at a time on a single page.
type Sequential struct {
	pacer           *ratelimit.Pacer
	humanizer       browser.Humanizer
	idleProbability float64
	rnd             func() float64
	logger          *slog.Logger
}

func NewSequential(cfg SequentialConfig, h browser.Humanizer, logger *slog.Logger) *Sequential {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = ratelimit.DefaultBaseDelay
	}
	if cfg.Adaptive == (ratelimit.AdaptiveConfig{}) {
		cfg.Adaptive = ratelimit.DefaultAdaptiveConfig()
	}
	if cfg.IdleProbability < 0 || cfg.IdleProbability > 1 {
		cfg.IdleProbability = DefaultIdleProbability
	}

	return &Sequential{
		pacer:           ratelimit.NewPacer(cfg.BaseDelay, cfg.Adaptive),
		humanizer:       h,
		idleProbability: cfg.IdleProbability,
		rnd:             rand.Float64,
		logger:          logger.With("component", "sequential_orchestrator"),
	}
}

// SetBaseDelay changes the base pause between items, in milliseconds. It
// takes effect from the next delay on, including for a run in progress.
func (s *Sequential) SetBaseDelay(ms float64) error {
	return s.pacer.SetBaseDelay(ms)
}

func (s *Sequential) BaseDelay() time.Duration {
	return s.pacer.BaseDelay()
}

type outcome struct {
	profile *models.ProfileData
	code    models.ErrorCode
	err     string
	elapsed time.Duration
}

func (o outcome) ok() bool { return o.profile != nil }

// Process runs extract and save for every URL in order and returns the
// aggregate counts. One event is emitted per processed item. ctx is only
// honoured between items: an item that has started runs to completion, and a
// cancelled run returns what it has so far.
func (s *Sequential) Process(ctx context.Context, urls []string, extract ExtractFunc, save SaveFunc, run RunContext) RunStats {
	var stats RunStats
	if len(urls) == 0 {
		return stats
	}

	total := len(urls)
	errorCount := 0
	var lastRequestTime time.Duration

	log := s.logger.With("search_query", run.SearchQuery, "total", total)
	log.Info("starting run")

	for i, profileURL := range urls {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled", "processed", stats.Processed, "error", err)
			return stats
		}

		o := s.processItem(context.WithoutCancel(ctx), profileURL, extract, save, run)
		lastRequestTime = o.elapsed
		stats.Processed++

		if o.ok() {
			stats.Succeeded++
			s.emitProfile(run, ProfileEvent{URL: profileURL, Profile: o.profile, Index: i, Total: total})
		} else {
			stats.Failed++
			errorCount++
			s.emitError(run, ErrorEvent{URL: profileURL, Error: o.err, Code: o.code, Index: i})
		}

		if i == total-1 {
			break
		}

		delay := s.pacer.Next(errorCount, lastRequestTime)
		log.Debug("waiting before next profile", "delay", delay, "errors", errorCount, "lastRequestTime", lastRequestTime)
		if err := ratelimit.Sleep(ctx, delay); err != nil {
			log.Warn("run cancelled", "processed", stats.Processed, "error", err)
			return stats
		}

		if run.Page != nil && s.humanizer != nil && s.rnd() < s.idleProbability {
			if err := s.humanizer.Simulate(ctx, run.Page); err != nil {
				log.Debug("idle simulation failed", "error", err)
			}
		}
	}

	log.Info("run complete",
		"processed", stats.Processed,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)
	return stats
}

// processItem never panics. Its outcome is a profile or an error, never both.
func (s *Sequential) processItem(ctx context.Context, profileURL string, extract ExtractFunc, save SaveFunc, run RunContext) (o outcome) {
	start := time.Now()

	defer func() {
		o.elapsed = time.Since(start)
		if rec := recover(); rec != nil {
			s.logger.Error("profile processing panicked", "url", profileURL, "panic", rec)
			o = outcome{
				code:    models.CodeUnexpectedException,
				err:     fmt.Sprintf("%v: %v", ErrUnexpected, rec),
				elapsed: time.Since(start),
			}
		}
	}()

	res := extract(ctx, run.Page, profileURL)
	if !res.Success || res.Data == nil {
		code := res.Code
		if code == "" {
			code = models.CodeUnexpectedException
		}
		msg := res.Error
		if msg == "" {
			msg = string(code)
		}
		return outcome{code: code, err: msg}
	}

	if save != nil {
		if err := save(ctx, profileURL, res.Data, run.SearchQuery); err != nil {
			s.logger.Error("failed to save profile", "url", profileURL, "error", err)
			return outcome{
				code: models.CodePersistenceFailure,
				err:  fmt.Errorf("%w: %v", ErrPersistence, err).Error(),
			}
		}
	}

	return outcome{profile: res.Data}
}

func (s *Sequential) emitProfile(run RunContext, ev ProfileEvent) {
	if run.OnProfile == nil {
		return
	}
	defer s.recoverCallback("onProfile", ev.URL)
	run.OnProfile(ev)
}

func (s *Sequential) emitError(run RunContext, ev ErrorEvent) {
	if run.OnError == nil {
		return
	}
	defer s.recoverCallback("onError", ev.URL)
	run.OnError(ev)
}

func (s *Sequential) recoverCallback(name, profileURL string) {
	if rec := recover(); rec != nil {
		s.logger.Error("event callback panicked", "callback", name, "url", profileURL, "panic", rec)
	}
}
