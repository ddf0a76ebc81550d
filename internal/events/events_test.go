package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfileScrapedPayload(t *testing.T) {
	phone := "(41) 99999-1234"
	profile := models.NewProfileData("https://example.com/candidato/1")
	profile.Personal.Name = "Ana Souza"
	profile.Personal.Phone = &phone
	profile.Career = append(profile.Career, models.CareerEntry{Role: "Analista"})
	profile.Skills = []string{"SQL"}

	payload := NewProfileScrapedPayload("profile-1", profile, "analista de dados")

	_, err := uuid.Parse(payload.EventID)
	require.NoError(t, err)
	assert.Equal(t, "CANDIDATE_PROFILE_SCRAPED", payload.EventType)
	assert.Equal(t, "profile-1", payload.ProfileID)
	assert.Equal(t, profile.URL, payload.ProfileURL)
	assert.Equal(t, 1, payload.CareerCount)
	assert.Equal(t, "analista de dados", payload.SearchQuery)
	assert.Equal(t, Source, payload.Source)
	assert.True(t, payload.HasContact())

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, phone, decoded["phone"])
	assert.NotContains(t, decoded, "email")
}

func TestProfileScrapedPayload_HasContact(t *testing.T) {
	payload := NewProfileScrapedPayload("p", models.NewProfileData("u"), "")
	assert.False(t, payload.HasContact())
}
