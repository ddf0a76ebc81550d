package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileStore_ProfileEvent(t *testing.T) {
	store := &ProfileStore{stream: "stream:test"}
	profile := models.NewProfileData("https://example.com/c/1")
	profile.Personal.Name = "Ana"

	id := uuid.New()
	event, err := store.profileEvent(id, profile, "analista")
	require.NoError(t, err)

	assert.Equal(t, "candidate_profile", event.AggregateType)
	assert.Equal(t, id.String(), event.AggregateID)
	assert.Equal(t, "CANDIDATE_PROFILE_SCRAPED", event.EventType)
	assert.Equal(t, "stream:test", event.TargetStream)
	require.NoError(t, event.Validate())

	var payload map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, "Ana", payload["name"])
	assert.Equal(t, "analista", payload["search_query"])
}

func TestProfileStore_Save(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	store := NewProfileStore(db, "", nil)
	url := "https://example.com/c/" + uuid.NewString()

	phone := "(41) 99999-1234"
	profile := models.NewProfileData(url)
	profile.Personal.Name = "Ana"
	profile.Personal.Phone = &phone
	require.NoError(t, store.Save(ctx, url, profile, "analista"))

	// a later scrape without the phone keeps the stored value
	again := models.NewProfileData(url)
	again.Personal.Name = "Ana Souza"
	require.NoError(t, store.Save(ctx, url, again, "analista"))

	var name string
	var stored *string
	err := db.QueryRow(ctx, "SELECT name, phone FROM candidate_profiles WHERE url = $1", url).Scan(&name, &stored)
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", name)
	require.NotNil(t, stored)
	assert.Equal(t, phone, *stored)

	var events int
	err = db.QueryRow(ctx,
		"SELECT COUNT(*) FROM outbox_event e JOIN candidate_profiles p ON p.id::text = e.aggregate_id WHERE p.url = $1",
		url).Scan(&events)
	require.NoError(t, err)
	assert.Equal(t, 2, events)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}

func TestProfileStore_SaveNil(t *testing.T) {
	store := &ProfileStore{}
	assert.Error(t, store.Save(context.Background(), "https://example.com/c/1", nil, ""))
}
