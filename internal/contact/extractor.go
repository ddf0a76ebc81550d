package contact

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/maltedev/candidate-contact-scraper/internal/errlog"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
	"github.com/maltedev/candidate-contact-scraper/internal/ratelimit"
)

const DefaultInterKindDelay = 500 * time.Millisecond

type ExtractorConfig struct {
	Reveal RevealConfig
	// InterKindDelay separates the phone and email reveals so the two
	// requests do not race inside the page's handlers.
	InterKindDelay time.Duration
	Resolver       Resolver
	Errors         *errlog.Log
}

// Extractor reveals phone then email for the current profile page.
type Extractor struct {
	revealer       *Revealer
	resolve        Resolver
	interKindDelay time.Duration
	errors         *errlog.Log
	logger         *slog.Logger

	mu      sync.Mutex
	options map[Kind]Options
}

func NewExtractor(cfg ExtractorConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = ResolveOptions
	}
	if cfg.InterKindDelay <= 0 {
		cfg.InterKindDelay = DefaultInterKindDelay
	}
	if cfg.Errors == nil {
		cfg.Errors = errlog.New(errlog.DefaultCapacity)
	}

	return &Extractor{
		revealer:       NewRevealer(cfg.Reveal, logger),
		resolve:        cfg.Resolver,
		interKindDelay: cfg.InterKindDelay,
		errors:         cfg.Errors,
		logger:         logger.With("component", "contact_extractor"),
		options:        make(map[Kind]Options, len(Kinds)),
	}
}

// Extract never fails: kinds that cannot be revealed are left nil.
func (e *Extractor) Extract(ctx context.Context, page browser.Page) models.Result[models.ContactRecord] {
	var record models.ContactRecord

	for i, kind := range Kinds {
		if i > 0 {
			if err := ratelimit.Sleep(ctx, e.interKindDelay); err != nil {
				e.logger.Debug("contact extraction interrupted", "error", err)
				break
			}
		}

		res := e.revealer.Reveal(ctx, page, e.optionsFor(kind))
		if !res.Success {
			e.errors.Add(res.Error, map[string]any{
				"kind": string(kind),
				"code": string(res.Code),
			})
			e.logger.Debug("contact not revealed", "kind", kind, "code", res.Code, "error", res.Error)
			continue
		}

		value := res.Data
		switch kind {
		case Phone:
			record.Phone = &value
		case Email:
			record.Email = &value
		}
	}

	return models.Ok(record)
}

// optionsFor resolves kind once and reuses the result for every later
// profile handled by this extractor.
func (e *Extractor) optionsFor(kind Kind) Options {
	e.mu.Lock()
	defer e.mu.Unlock()

	if o, ok := e.options[kind]; ok {
		return o
	}
	o := e.resolve(kind)
	o.Kind = kind
	e.options[kind] = o
	return o
}
