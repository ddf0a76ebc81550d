package scraper

import (
	"context"
	"errors"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
)

var (
	ErrInvalidURL  = errors.New("invalid profile URL")
	ErrParse       = errors.New("failed to parse profile")
	ErrPersistence = errors.New("failed to save profile")
	ErrUnexpected  = errors.New("unexpected failure")
)

// ContactSource reveals the contact details of the profile currently loaded
// in page. It must not fail the profile: missing channels are nil fields.
type ContactSource interface {
	Extract(ctx context.Context, page browser.Page) models.Result[models.ContactRecord]
}

// ExtractFunc loads and extracts one profile.
type ExtractFunc func(ctx context.Context, page browser.Page, url string) models.Result[*models.ProfileData]

// SaveFunc persists a successfully extracted profile.
type SaveFunc func(ctx context.Context, url string, profile *models.ProfileData, searchQuery string) error
