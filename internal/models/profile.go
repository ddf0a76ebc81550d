package models

import (
	"strings"
	"time"
)

type ProfileData struct {
	URL         string          `json:"url"`
	Personal    PersonalData    `json:"personal"`
	Career      []CareerEntry   `json:"career"`
	Education   []EducationItem `json:"education"`
	Courses     []string        `json:"courses"`
	Languages   []Language      `json:"languages"`
	Skills      []string        `json:"skills"`
	ScrapedAt   time.Time       `json:"scraped_at"`
	LastUpdated time.Time       `json:"last_updated"`
}

type PersonalData struct {
	Name     string  `json:"name"`
	Headline string  `json:"headline,omitempty"`
	Location string  `json:"location,omitempty"`
	Age      int     `json:"age,omitempty"`
	Salary   string  `json:"salary,omitempty"`
	Summary  string  `json:"summary,omitempty"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
}

type CareerEntry struct {
	Role        string `json:"role"`
	Company     string `json:"company"`
	Period      string `json:"period,omitempty"`
	Description string `json:"description,omitempty"`
}

type EducationItem struct {
	Course      string `json:"course"`
	Institution string `json:"institution"`
	Period      string `json:"period,omitempty"`
}

type Language struct {
	Name  string `json:"name"`
	Level string `json:"level,omitempty"`
}

// ContactRecord holds revealed contact values. A nil field means the profile
// did not expose that channel.
type ContactRecord struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

func NewProfileData(url string) *ProfileData {
	now := time.Now()
	return &ProfileData{
		URL:         url,
		ScrapedAt:   now,
		LastUpdated: now,
		Career:      make([]CareerEntry, 0),
		Education:   make([]EducationItem, 0),
		Courses:     make([]string, 0),
		Languages:   make([]Language, 0),
		Skills:      make([]string, 0),
	}
}

// MergeContact copies revealed contact values into the personal section.
// Fields absent from the record leave existing values untouched.
func (p *ProfileData) MergeContact(c ContactRecord) {
	if c.Email != nil {
		p.Personal.Email = c.Email
	}
	if c.Phone != nil {
		p.Personal.Phone = c.Phone
	}
}

// HasContent reports whether the personal section carries anything besides
// contact fields.
func (pd *PersonalData) HasContent() bool {
	return strings.TrimSpace(pd.Name) != "" ||
		strings.TrimSpace(pd.Headline) != "" ||
		strings.TrimSpace(pd.Location) != "" ||
		strings.TrimSpace(pd.Summary) != "" ||
		strings.TrimSpace(pd.Salary) != "" ||
		pd.Age > 0
}

func (p *ProfileData) IsValid() bool {
	return p.Personal.HasContent() || len(p.Career) > 0
}

func (p *ProfileData) Validate() []string {
	var errors []string

	if p.URL == "" {
		errors = append(errors, "URL is required")
	}

	if !p.IsValid() {
		errors = append(errors, "Profile has neither personal data nor career info")
	}

	return errors
}
