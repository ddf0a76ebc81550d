package commands

import (
	"fmt"
	"log/slog"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/maltedev/candidate-contact-scraper/internal/config"
	"github.com/maltedev/candidate-contact-scraper/internal/contact"
	"github.com/maltedev/candidate-contact-scraper/internal/errlog"
	"github.com/maltedev/candidate-contact-scraper/internal/parser"
	"github.com/maltedev/candidate-contact-scraper/internal/ratelimit"
	"github.com/maltedev/candidate-contact-scraper/internal/scraper"
)

// pipeline is the single browser page plus everything that drives it.
type pipeline struct {
	browser      *browser.Browser
	page         browser.Page
	extractor    *scraper.ProfileExtractor
	orchestrator *scraper.Sequential
	errors       *errlog.Log
}

func newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	resolver, err := contact.LoadHints(cfg.Scraper.HintsFile)
	if err != nil {
		return nil, err
	}

	b, err := browser.New(browserOptions(cfg.Browser), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	page, err := b.NewPage()
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	errs := errlog.New(cfg.Scraper.ErrorLogSize)
	humanizer := browser.NewHumanBehavior(cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight, logger)

	contacts := contact.NewExtractor(contact.ExtractorConfig{
		Reveal: contact.RevealConfig{
			SettleDelay:  cfg.Scraper.RevealSettle,
			Timeout:      cfg.Scraper.RevealTimeout,
			PollInterval: cfg.Scraper.RevealPoll,
		},
		InterKindDelay: cfg.Scraper.InterKindDelay,
		Resolver:       resolver,
		Errors:         errs,
	}, logger)

	profileCfg := scraper.DefaultProfileConfig()
	profileCfg.NavigationTimeout = cfg.Scraper.NavigationTimeout
	profileCfg.Errors = errs
	extractor := scraper.NewProfileExtractor(profileCfg, contacts, parser.NewProfileParser(), humanizer, logger)

	adaptive := ratelimit.DefaultAdaptiveConfig()
	adaptive.MaxDelay = cfg.Scraper.MaxDelay
	orchestrator := scraper.NewSequential(scraper.SequentialConfig{
		BaseDelay:       cfg.Scraper.BaseDelay,
		Adaptive:        adaptive,
		IdleProbability: cfg.Scraper.IdleProbability,
	}, humanizer, logger)

	return &pipeline{
		browser:      b,
		page:         page,
		extractor:    extractor,
		orchestrator: orchestrator,
		errors:       errs,
	}, nil
}

func (p *pipeline) Close() error {
	return p.browser.Close()
}

func browserOptions(c config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = c.Headless
	opts.Timeout = c.Timeout
	opts.ViewportWidth = c.ViewportWidth
	opts.ViewportHeight = c.ViewportHeight
	opts.AcceptLanguage = c.AcceptLanguage
	opts.TimezoneID = c.TimezoneID
	opts.Locale = c.Locale
	opts.ProxyServer = c.ProxyServer
	opts.StorageState = c.StorageState
	return opts
}
