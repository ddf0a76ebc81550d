package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/models"
)

type StoredProfile struct {
	Profile     *models.ProfileData `json:"profile"`
	SearchQuery string              `json:"search_query,omitempty"`
	SavedAt     time.Time           `json:"saved_at"`
}

// ProfileFile keeps profiles keyed by URL in a single JSON file. It is the
// store used when no database is configured.
type ProfileFile struct {
	mu       sync.RWMutex
	profiles map[string]*StoredProfile
	filename string
}

func NewProfileFile(filename string) (*ProfileFile, error) {
	pf := &ProfileFile{
		profiles: make(map[string]*StoredProfile),
		filename: filename,
	}

	if err := pf.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	return pf, nil
}

// Save matches the orchestrator's persistence callback. Contact values
// already on file survive a rescrape that did not reveal them.
func (pf *ProfileFile) Save(_ context.Context, url string, profile *models.ProfileData, searchQuery string) error {
	if url == "" {
		return fmt.Errorf("profile URL is required")
	}
	if profile == nil {
		return fmt.Errorf("nil profile for %s", url)
	}

	pf.mu.Lock()
	defer pf.mu.Unlock()

	if prev, ok := pf.profiles[url]; ok && prev.Profile != nil {
		profile.MergeContact(models.ContactRecord{
			Email: orElse(profile.Personal.Email, prev.Profile.Personal.Email),
			Phone: orElse(profile.Personal.Phone, prev.Profile.Personal.Phone),
		})
	}

	pf.profiles[url] = &StoredProfile{
		Profile:     profile,
		SearchQuery: searchQuery,
		SavedAt:     time.Now(),
	}
	return pf.save()
}

func (pf *ProfileFile) Get(url string) (*StoredProfile, bool) {
	pf.mu.RLock()
	defer pf.mu.RUnlock()

	p, ok := pf.profiles[url]
	return p, ok
}

// List returns stored profiles ordered by URL.
func (pf *ProfileFile) List() []*StoredProfile {
	pf.mu.RLock()
	defer pf.mu.RUnlock()

	urls := make([]string, 0, len(pf.profiles))
	for url := range pf.profiles {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	out := make([]*StoredProfile, 0, len(urls))
	for _, url := range urls {
		out = append(out, pf.profiles[url])
	}
	return out
}

func (pf *ProfileFile) Len() int {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return len(pf.profiles)
}

func (pf *ProfileFile) save() error {
	data, err := json.MarshalIndent(pf.profiles, "", "  ")
	if err != nil {
		return err
	}

	// write to a temp file first so a crash never leaves a truncated store
	tmpFile := pf.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, pf.filename)
}

func (pf *ProfileFile) Load() error {
	data, err := os.ReadFile(pf.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &pf.profiles)
}

func orElse(v, fallback *string) *string {
	if v != nil {
		return v
	}
	return fallback
}
