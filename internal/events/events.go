package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
)

type EventType string

const (
	// EventTypeProfileScraped is published whenever a profile is stored or
	// refreshed.
	EventTypeProfileScraped EventType = "CANDIDATE_PROFILE_SCRAPED"

	AggregateProfile = "candidate_profile"
	Source           = "candidate-contact-scraper"
)

type ProfileScrapedPayload struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	ProfileID   string    `json:"profile_id"`
	ProfileURL  string    `json:"profile_url"`
	Name        string    `json:"name"`
	Headline    string    `json:"headline,omitempty"`
	Location    string    `json:"location,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Skills      []string  `json:"skills,omitempty"`
	CareerCount int       `json:"career_count"`
	SearchQuery string    `json:"search_query,omitempty"`
	ScrapedAt   time.Time `json:"scraped_at"`
	Source      string    `json:"source"`
}

// HasContact reports whether at least one contact channel was revealed.
func (p *ProfileScrapedPayload) HasContact() bool {
	return p.Email != nil || p.Phone != nil
}

func NewProfileScrapedPayload(profileID string, profile *models.ProfileData, searchQuery string) *ProfileScrapedPayload {
	return &ProfileScrapedPayload{
		EventID:     uuid.New().String(),
		EventType:   string(EventTypeProfileScraped),
		Timestamp:   time.Now(),
		ProfileID:   profileID,
		ProfileURL:  profile.URL,
		Name:        profile.Personal.Name,
		Headline:    profile.Personal.Headline,
		Location:    profile.Personal.Location,
		Email:       profile.Personal.Email,
		Phone:       profile.Personal.Phone,
		Skills:      profile.Skills,
		CareerCount: len(profile.Career),
		SearchQuery: searchQuery,
		ScrapedAt:   profile.ScrapedAt,
		Source:      Source,
	}
}
