package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/maltedev/candidate-contact-scraper/internal/errlog"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
	"github.com/maltedev/candidate-contact-scraper/internal/parser"
	"github.com/maltedev/candidate-contact-scraper/internal/ratelimit"
)

const readyScript = `() => document.readyState !== 'loading' && !!document.body`

type ProfileConfig struct {
	NavigationTimeout time.Duration
	// ReadyTimeout bounds the wait for a usable DOM after navigation. It is
	// best-effort: the profile is still read when it elapses.
	ReadyTimeout time.Duration
	WaitBase     time.Duration
	WaitJitter   float64
	Errors       *errlog.Log
}

func DefaultProfileConfig() ProfileConfig {
	return ProfileConfig{
		NavigationTimeout: 30 * time.Second,
		ReadyTimeout:      5 * time.Second,
		WaitBase:          2 * time.Second,
		WaitJitter:        ratelimit.DefaultJitterRatio,
	}
}

// ProfileExtractor loads a profile page and turns it into ProfileData.
type ProfileExtractor struct {
	cfg       ProfileConfig
	contacts  ContactSource
	parser    parser.Parser
	humanizer browser.Humanizer
	errors    *errlog.Log
	logger    *slog.Logger
}

func NewProfileExtractor(cfg ProfileConfig, contacts ContactSource, p parser.Parser, h browser.Humanizer, logger *slog.Logger) *ProfileExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	d := DefaultProfileConfig()
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = d.NavigationTimeout
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = d.ReadyTimeout
	}
	if cfg.WaitBase <= 0 {
		cfg.WaitBase = d.WaitBase
	}
	if cfg.WaitJitter <= 0 {
		cfg.WaitJitter = d.WaitJitter
	}
	if cfg.Errors == nil {
		cfg.Errors = errlog.New(errlog.DefaultCapacity)
	}

	return &ProfileExtractor{
		cfg:       cfg,
		contacts:  contacts,
		parser:    p,
		humanizer: h,
		errors:    cfg.Errors,
		logger:    logger.With("component", "profile_extractor"),
	}
}

// Errors returns the recent extraction failures, oldest first.
func (e *ProfileExtractor) Errors() []errlog.Record {
	return e.errors.Entries()
}

// Extract navigates page to profileURL and extracts the profile. Failures,
// panics included, come back as an unsuccessful result. A successful result
// may still hold a profile that fails IsValid.
func (e *ProfileExtractor) Extract(ctx context.Context, page browser.Page, profileURL string) (result models.Result[*models.ProfileData]) {
	log := e.logger.With("url", profileURL)

	defer func() {
		if rec := recover(); rec != nil {
			result = e.fail(log, profileURL, models.CodeUnexpectedException, fmt.Errorf("%w: %v", ErrUnexpected, rec))
		}
	}()

	if err := validateURL(profileURL); err != nil {
		return e.fail(log, profileURL, models.CodeNavigationFailure, err)
	}

	log.Info("extracting profile")

	latency, err := page.Navigate(ctx, profileURL, e.cfg.NavigationTimeout)
	if err != nil {
		code := models.CodeNavigationFailure
		if errors.Is(err, browser.ErrNavigationTimeout) {
			code = models.CodeNavigationTimeout
		}
		return e.fail(log, profileURL, code, err)
	}

	if err := page.WaitForCondition(ctx, readyScript, nil, browser.WaitOptions{
		Timeout:      e.cfg.ReadyTimeout,
		PollInterval: 250 * time.Millisecond,
	}); err != nil {
		log.Debug("page not ready, continuing", "error", err)
	}

	if e.humanizer != nil {
		if err := e.humanizer.Wait(ctx, page, e.cfg.WaitBase, e.cfg.WaitJitter); err != nil {
			log.Debug("humanized wait interrupted", "error", err)
		}
		if err := e.humanizer.Simulate(ctx, page); err != nil {
			log.Warn("failed to simulate human behavior", "error", err)
		}
	}

	var contact models.ContactRecord
	if e.contacts != nil {
		contact = e.contacts.Extract(ctx, page).Data
	}

	html, err := page.Content(ctx)
	if err != nil {
		return e.fail(log, profileURL, models.CodeParseFailure, fmt.Errorf("%w: failed to get page content: %v", ErrParse, err))
	}

	profile, err := e.parser.Parse(html)
	if err != nil {
		return e.fail(log, profileURL, models.CodeParseFailure, fmt.Errorf("%w: %v", ErrParse, err))
	}

	profile.URL = profileURL
	profile.MergeContact(contact)

	if problems := profile.Validate(); len(problems) > 0 {
		log.Warn("profile looks incomplete", "problems", problems)
	}

	log.Info("extracted profile",
		"name", profile.Personal.Name,
		"hasPhone", profile.Personal.Phone != nil,
		"hasEmail", profile.Personal.Email != nil,
		"careerEntries", len(profile.Career),
		"latency", latency,
	)

	result = models.Ok(profile)
	result.RequestTime = latency
	return result
}

func (e *ProfileExtractor) fail(log *slog.Logger, profileURL string, code models.ErrorCode, err error) models.Result[*models.ProfileData] {
	e.errors.Add(err.Error(), map[string]any{
		"url":  profileURL,
		"code": string(code),
	})
	log.Error("profile extraction failed", "code", code, "error", err)
	return models.Fail[*models.ProfileData](code, err)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}
