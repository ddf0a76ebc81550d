package scraper

import (
	"context"
	"sync"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
	"github.com/stretchr/testify/mock"
)

type stubPage struct {
	mu        sync.Mutex
	latency   time.Duration
	navErr    error
	html      string
	htmlErr   error
	navigated []string
	// honourCtx makes Navigate and Content fail on a done ctx like the
	// playwright adapter does.
	honourCtx bool
}

func (p *stubPage) Navigate(ctx context.Context, url string, _ time.Duration) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigated = append(p.navigated, url)
	if p.honourCtx && ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return p.latency, p.navErr
}

func (p *stubPage) Evaluate(context.Context, string, any) (any, error) { return nil, nil }

func (p *stubPage) Click(context.Context, string) error { return nil }

func (p *stubPage) WaitForCondition(context.Context, string, any, browser.WaitOptions) error {
	return nil
}

func (p *stubPage) Content(ctx context.Context) (string, error) {
	if p.honourCtx && ctx.Err() != nil {
		return "", ctx.Err()
	}
	return p.html, p.htmlErr
}

func (p *stubPage) MoveMouse(context.Context, float64, float64) error { return nil }

type countingHumanizer struct {
	mu        sync.Mutex
	waits     []time.Duration
	simulated int
}

func (h *countingHumanizer) Wait(_ context.Context, _ browser.Page, base time.Duration, _ float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.waits = append(h.waits, base)
	return nil
}

func (h *countingHumanizer) Simulate(context.Context, browser.Page) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.simulated++
	return nil
}

func (h *countingHumanizer) simulations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.simulated
}

// cancellingHumanizer cancels the run from inside the item's humanized wait.
type cancellingHumanizer struct {
	cancel context.CancelFunc
}

func (h *cancellingHumanizer) Wait(context.Context, browser.Page, time.Duration, float64) error {
	h.cancel()
	return nil
}

func (h *cancellingHumanizer) Simulate(context.Context, browser.Page) error { return nil }

type MockContactSource struct {
	mock.Mock
}

func (m *MockContactSource) Extract(ctx context.Context, page browser.Page) models.Result[models.ContactRecord] {
	args := m.Called(ctx, page)
	return args.Get(0).(models.Result[models.ContactRecord])
}

type MockParser struct {
	mock.Mock
}

func (m *MockParser) Parse(html string) (*models.ProfileData, error) {
	args := m.Called(html)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProfileData), args.Error(1)
}
