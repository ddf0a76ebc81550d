package contact

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
)

// channel describes how one contact kind behaves on the fake page.
type channel struct {
	visible     bool
	trigger     bool
	revealAfter time.Duration // <0 never reveals
	raw         string
	clickErr    error
	extractErr  error
}

type fakePage struct {
	mu        sync.Mutex
	channels  map[Kind]*channel
	clickedAt map[Kind]time.Time
	clicks    []string
	panicOn   string
}

func newFakePage(channels map[Kind]*channel) *fakePage {
	return &fakePage{
		channels:  channels,
		clickedAt: make(map[Kind]time.Time),
	}
}

func (p *fakePage) Navigate(context.Context, string, time.Duration) (time.Duration, error) {
	return 0, nil
}

func (p *fakePage) Evaluate(_ context.Context, script string, arg any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	args, _ := arg.(map[string]interface{})
	kind := Kind(args["kind"].(string))

	if p.panicOn != "" && script == p.panicOn {
		panic("page crashed")
	}

	ch, ok := p.channels[kind]
	if !ok {
		ch = &channel{}
	}

	switch script {
	case visibilityScript:
		return p.isVisible(kind, ch), nil
	case locateTriggerScript:
		if !ch.trigger {
			return "", nil
		}
		return `[data-reveal-trigger="` + string(kind) + `"]`, nil
	case extractScript:
		if ch.extractErr != nil {
			return nil, ch.extractErr
		}
		if !p.isVisible(kind, ch) {
			return "", nil
		}
		return ch.raw, nil
	}
	return nil, errors.New("unexpected script")
}

func (p *fakePage) isVisible(kind Kind, ch *channel) bool {
	if ch.visible {
		return true
	}
	at, clicked := p.clickedAt[kind]
	if !clicked || ch.revealAfter < 0 {
		return false
	}
	return time.Since(at) >= ch.revealAfter
}

func (p *fakePage) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clicks = append(p.clicks, selector)
	for kind, ch := range p.channels {
		if strings.Contains(selector, `"`+string(kind)+`"`) {
			if ch.clickErr != nil {
				return ch.clickErr
			}
			p.clickedAt[kind] = time.Now()
		}
	}
	return nil
}

func (p *fakePage) WaitForCondition(context.Context, string, any, browser.WaitOptions) error {
	return nil
}

func (p *fakePage) Content(context.Context) (string, error) { return "", nil }

func (p *fakePage) MoveMouse(context.Context, float64, float64) error { return nil }

func (p *fakePage) clickCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clicks)
}
