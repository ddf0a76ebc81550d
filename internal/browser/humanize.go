package browser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/ratelimit"
)

// Humanizer supplies the timing and input noise that keeps a session from
// looking scripted.
type Humanizer interface {
	Wait(ctx context.Context, page Page, base time.Duration, jitterRatio float64) error
	Simulate(ctx context.Context, page Page) error
}

type HumanBehavior struct {
	viewportWidth  int
	viewportHeight int
	rnd            func() float64
	logger         *slog.Logger
}

func NewHumanBehavior(viewportWidth, viewportHeight int, logger *slog.Logger) *HumanBehavior {
	if logger == nil {
		logger = slog.Default()
	}
	if viewportWidth <= 0 || viewportHeight <= 0 {
		viewportWidth, viewportHeight = 1920, 1080
	}
	return &HumanBehavior{
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
		rnd:            rand.Float64,
		logger:         logger.With("component", "humanizer"),
	}
}

// Wait sleeps for base with jitter applied.
func (h *HumanBehavior) Wait(ctx context.Context, _ Page, base time.Duration, jitterRatio float64) error {
	return ratelimit.Sleep(ctx, ratelimit.Jitter(base, jitterRatio, h.rnd))
}

// Simulate wanders the mouse across the viewport and scrolls a little.
func (h *HumanBehavior) Simulate(ctx context.Context, page Page) error {
	moves := 2 + int(h.rnd()*3)
	for i := 0; i < moves; i++ {
		x := float64(h.viewportWidth) * (0.2 + 0.6*h.rnd())
		y := float64(h.viewportHeight) * (0.2 + 0.6*h.rnd())
		if err := page.MoveMouse(ctx, x, y); err != nil {
			return fmt.Errorf("failed to move mouse: %w", err)
		}
		if err := ratelimit.Sleep(ctx, h.between(150, 450)); err != nil {
			return err
		}
	}

	action := h.rnd()
	switch {
	case action < 0.6:
		_, err := page.Evaluate(ctx, `(dy) => window.scrollBy(0, dy)`, 100+h.rnd()*300)
		if err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
	case action < 0.75:
		_, err := page.Evaluate(ctx, `(dy) => window.scrollBy(0, -dy)`, 50+h.rnd()*150)
		if err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
	default:
		// pause and "read"
	}

	return ratelimit.Sleep(ctx, h.between(500, 1200))
}

func (h *HumanBehavior) between(minMs, maxMs int) time.Duration {
	span := float64(maxMs - minMs)
	return time.Duration(float64(minMs)+h.rnd()*span) * time.Millisecond
}
