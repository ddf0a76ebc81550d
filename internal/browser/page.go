package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

var (
	ErrNavigationTimeout = errors.New("navigation timed out")
	ErrBlocked           = errors.New("blocked by anti-bot check")
	ErrConditionTimeout  = errors.New("condition not met before timeout")
)

// Page is the browser capability the scraper depends on. One Page is used by
// a single extraction at a time.
type Page interface {
	// Navigate loads url and returns the round-trip latency.
	Navigate(ctx context.Context, url string, timeout time.Duration) (time.Duration, error)
	Evaluate(ctx context.Context, script string, arg any) (any, error)
	Click(ctx context.Context, selector string) error
	WaitForCondition(ctx context.Context, script string, arg any, opts WaitOptions) error
	Content(ctx context.Context) (string, error)
	MoveMouse(ctx context.Context, x, y float64) error
}

type WaitOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// PollUntil calls check every interval until it reports true, ctx is done or
// timeout elapses. Errors from check count as "not yet".
func PollUntil(ctx context.Context, timeout, interval time.Duration, check func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	for {
		ok, err := check(ctx)
		if err == nil && ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrConditionTimeout
		}

		wait := interval
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

type playwrightPage struct {
	page         playwright.Page
	clickTimeout time.Duration
	logger       *slog.Logger
}

// WrapPage adapts a playwright page to Page.
func WrapPage(page playwright.Page, logger *slog.Logger) Page {
	if logger == nil {
		logger = slog.Default()
	}
	return &playwrightPage{
		page:         page,
		clickTimeout: 5 * time.Second,
		logger:       logger.With("component", "page"),
	}
}

func (p *playwrightPage) Navigate(ctx context.Context, url string, timeout time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	start := time.Now()
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	latency := time.Since(start)

	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return latency, fmt.Errorf("%w after %s: %v", ErrNavigationTimeout, timeout, err)
		}
		return latency, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if blocked, reason := p.checkIfBlocked(); blocked {
		p.logger.Warn("detected captcha/block", "url", url, "reason", reason)
		return latency, fmt.Errorf("%w: %s", ErrBlocked, reason)
	}

	return latency, nil
}

func (p *playwrightPage) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if arg == nil {
		return p.page.Evaluate(script)
	}
	return p.page.Evaluate(script, arg)
}

func (p *playwrightPage) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(p.clickTimeout.Milliseconds())),
	})
}

func (p *playwrightPage) WaitForCondition(ctx context.Context, script string, arg any, opts WaitOptions) error {
	return PollUntil(ctx, opts.Timeout, opts.PollInterval, func(ctx context.Context) (bool, error) {
		v, err := p.Evaluate(ctx, script, arg)
		if err != nil {
			return false, err
		}
		ok, _ := v.(bool)
		return ok, nil
	})
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *playwrightPage) MoveMouse(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Mouse().Move(x, y, playwright.MouseMoveOptions{
		Steps: playwright.Int(10),
	})
}

func (p *playwrightPage) checkIfBlocked() (bool, string) {
	captchaSelectors := []string{
		"iframe[src*='recaptcha']",
		"iframe[src*='hcaptcha']",
		"#challenge-form",
		"#cf-challenge-running",
	}

	for _, selector := range captchaSelectors {
		if count, _ := p.page.Locator(selector).Count(); count > 0 {
			return true, selector
		}
	}

	title, _ := p.page.Title()
	lower := strings.ToLower(title)
	for _, marker := range []string{"just a moment", "access denied", "attention required"} {
		if strings.Contains(lower, marker) {
			return true, "title: " + title
		}
	}

	return false, ""
}
