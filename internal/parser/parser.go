package parser

import (
	"github.com/maltedev/candidate-contact-scraper/internal/models"
)

type Parser interface {
	// Parse maps a rendered profile page into profile sections. The URL and
	// contact fields are left for the caller to fill.
	Parse(html string) (*models.ProfileData, error)
}
