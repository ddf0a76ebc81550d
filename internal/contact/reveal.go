package contact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
	"github.com/maltedev/candidate-contact-scraper/internal/ratelimit"
)

var (
	ErrTriggerNotFound = errors.New("reveal trigger not found")
	ErrClickFailed     = errors.New("failed to click reveal trigger")
	ErrRevealTimeout   = errors.New("contact value did not appear in time")
	ErrExtractFailed   = errors.New("failed to read contact value")
	ErrEmptyValue      = errors.New("contact value is empty")
)

const triggerAttr = "data-reveal-trigger"

// readValueJS returns the comma-joined values found under the first value
// hint that yields anything plausible for the kind.
const readValueJS = `(args) => {
	const looksValid = (v) => {
		if (/[*•]/.test(v)) return false;
		return args.kind === 'email'
			? v.includes('@')
			: v.replace(/\D/g, '').length >= 8;
	};
	const read = (el) => {
		const href = el.getAttribute('href') || '';
		if (href.startsWith('tel:')) return href.slice(4);
		if (href.startsWith('mailto:')) return href.slice(7);
		const data = el.getAttribute('data-' + args.kind);
		if (data) return data;
		return (el.innerText || el.textContent || '');
	};
	for (const hint of args.valueHints || []) {
		let nodes = [];
		try { nodes = document.querySelectorAll(hint); } catch (e) { continue; }
		const values = [];
		for (const el of nodes) {
			const v = read(el).trim();
			if (v && looksValid(v)) values.push(v);
		}
		if (values.length > 0) return values.join(', ');
	}
	return '';
}`

const (
	visibilityScript = `(args) => (` + readValueJS + `)(args) !== ''`
	extractScript    = readValueJS
)

// locateTriggerScript tags the control whose text matches a trigger hint and
// returns a selector for it, or '' when there is none. Real controls win over
// plain containers, and within each group the innermost match wins so a
// wrapper around the control is never the click target.
const locateTriggerScript = `(args) => {
	const norm = (s) => (s || '').toLowerCase()
		.normalize('NFD').replace(/[\u0300-\u036f]/g, '')
		.replace(/\s+/g, ' ').trim();
	const hints = (args.triggerHints || []).map(norm).filter(Boolean);
	if (hints.length === 0) return '';
	const matches = (el) => {
		const text = norm(el.innerText || el.textContent);
		return text !== '' && text.length <= 60 && hints.some((h) => text.includes(h));
	};
	const selector = '[` + triggerAttr + `="' + args.kind + '"]';
	for (const el of document.querySelectorAll(selector)) el.removeAttribute('` + triggerAttr + `');
	const innermost = (query) => {
		const found = Array.from(document.querySelectorAll(query)).filter(matches);
		return found.find((el) => !found.some((other) => other !== el && el.contains(other)));
	};
	const target = innermost('button, a, [role="button"]') || innermost('span, div');
	if (!target) return '';
	target.setAttribute('` + triggerAttr + `', args.kind);
	return selector;
}`

type RevealConfig struct {
	// SettleDelay is the pause after clicking before the first poll.
	SettleDelay  time.Duration
	Timeout      time.Duration
	PollInterval time.Duration
}

func DefaultRevealConfig() RevealConfig {
	return RevealConfig{
		SettleDelay:  1500 * time.Millisecond,
		Timeout:      6000 * time.Millisecond,
		PollInterval: 200 * time.Millisecond,
	}
}

func (c RevealConfig) withDefaults() RevealConfig {
	d := DefaultRevealConfig()
	if c.SettleDelay <= 0 {
		c.SettleDelay = d.SettleDelay
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}

// Revealer drives the click-and-wait protocol for a single contact kind.
type Revealer struct {
	cfg    RevealConfig
	logger *slog.Logger
}

func NewRevealer(cfg RevealConfig, logger *slog.Logger) *Revealer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Revealer{
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "contact_revealer"),
	}
}

// Reveal makes the value for opts.Kind visible and returns its first
// candidate. A value that is already visible is read without clicking.
// Every failure is reported through the result, never as a panic.
func (r *Revealer) Reveal(ctx context.Context, page browser.Page, opts Options) (result models.Result[string]) {
	log := r.logger.With("kind", opts.Kind)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("reveal panicked", "panic", rec)
			result = models.Fail[string](models.CodeUnexpectedException, fmt.Errorf("reveal %s: %v", opts.Kind, rec))
		}
	}()

	args := opts.scriptArgs()

	if r.isVisible(ctx, page, args) {
		log.Debug("value already visible")
		return r.extract(ctx, page, args)
	}

	selector, err := r.locateTrigger(ctx, page, args)
	if err != nil {
		log.Debug("reveal trigger not found", "error", err)
		return models.Fail[string](models.CodeTriggerNotFound, err)
	}

	if err := page.Click(ctx, selector); err != nil {
		log.Warn("failed to click reveal trigger", "selector", selector, "error", err)
		return models.Fail[string](models.CodeClickFailed, fmt.Errorf("%w: %v", ErrClickFailed, err))
	}

	if err := ratelimit.Sleep(ctx, r.cfg.SettleDelay); err != nil {
		return models.Fail[string](models.CodeRevealTimeout, fmt.Errorf("%w: %v", ErrRevealTimeout, err))
	}

	err = browser.PollUntil(ctx, r.cfg.Timeout, r.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		return r.isVisible(ctx, page, args), nil
	})
	if err != nil {
		log.Info("contact value did not appear", "timeout", r.cfg.Timeout, "error", err)
		return models.Fail[string](models.CodeRevealTimeout, fmt.Errorf("%w after %s", ErrRevealTimeout, r.cfg.Timeout))
	}

	return r.extract(ctx, page, args)
}

func (r *Revealer) isVisible(ctx context.Context, page browser.Page, args map[string]interface{}) bool {
	v, err := page.Evaluate(ctx, visibilityScript, args)
	if err != nil {
		r.logger.Debug("visibility check failed", "kind", args["kind"], "error", err)
		return false
	}
	visible, _ := v.(bool)
	return visible
}

func (r *Revealer) locateTrigger(ctx context.Context, page browser.Page, args map[string]interface{}) (string, error) {
	v, err := page.Evaluate(ctx, locateTriggerScript, args)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTriggerNotFound, err)
	}
	selector, _ := v.(string)
	if strings.TrimSpace(selector) == "" {
		return "", ErrTriggerNotFound
	}
	return selector, nil
}

func (r *Revealer) extract(ctx context.Context, page browser.Page, args map[string]interface{}) models.Result[string] {
	v, err := page.Evaluate(ctx, extractScript, args)
	if err != nil {
		return models.Fail[string](models.CodeExtractFailed, fmt.Errorf("%w: %v", ErrExtractFailed, err))
	}

	raw, _ := v.(string)
	value := FirstCandidate(raw)
	if value == "" {
		return models.Fail[string](models.CodeEmptyValue, ErrEmptyValue)
	}

	return models.Ok(value)
}

// FirstCandidate returns the first non-empty comma-separated entry of raw,
// trimmed. The site tends to render the same number more than once.
func FirstCandidate(raw string) string {
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			return p
		}
	}
	return ""
}
