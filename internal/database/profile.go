package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/candidate-contact-scraper/internal/events"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
)

// ProfileStore upserts scraped profiles keyed by URL and queues a
// CANDIDATE_PROFILE_SCRAPED event in the same transaction.
type ProfileStore struct {
	db     *DB
	outbox *OutboxRepository
	stream string
	logger *slog.Logger
}

func NewProfileStore(db *DB, stream string, logger *slog.Logger) *ProfileStore {
	if logger == nil {
		logger = slog.Default()
	}
	if stream == "" {
		stream = DefaultStream
	}
	return &ProfileStore{
		db:     db,
		outbox: NewOutboxRepository(db),
		stream: stream,
		logger: logger.With("component", "profile_store"),
	}
}

// Save matches the orchestrator's persistence callback.
func (s *ProfileStore) Save(ctx context.Context, url string, profile *models.ProfileData, searchQuery string) error {
	if profile == nil {
		return fmt.Errorf("nil profile for %s", url)
	}
	if profile.URL == "" {
		profile.URL = url
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	var profileID uuid.UUID
	err = s.db.Transaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, upsertProfileQuery,
			uuid.New(), profile.URL,
			profile.Personal.Name, profile.Personal.Headline, profile.Personal.Location,
			profile.Personal.Email, profile.Personal.Phone,
			data, searchQuery, profile.ScrapedAt,
		).Scan(&profileID)
		if err != nil {
			return fmt.Errorf("failed to upsert profile: %w", err)
		}

		event, err := s.profileEvent(profileID, profile, searchQuery)
		if err != nil {
			return err
		}
		return s.outbox.InsertWithTx(ctx, tx, event)
	})
	if err != nil {
		return err
	}

	s.logger.Info("profile saved",
		"id", profileID,
		"url", profile.URL,
		"search_query", searchQuery,
	)
	return nil
}

func (s *ProfileStore) profileEvent(id uuid.UUID, profile *models.ProfileData, searchQuery string) (*OutboxEvent, error) {
	payload := events.NewProfileScrapedPayload(id.String(), profile, searchQuery)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return &OutboxEvent{
		AggregateType: events.AggregateProfile,
		AggregateID:   id.String(),
		EventType:     string(events.EventTypeProfileScraped),
		Payload:       body,
		TargetStream:  s.stream,
	}, nil
}

// Count returns the number of stored profiles.
func (s *ProfileStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM candidate_profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

const upsertProfileQuery = `
	INSERT INTO candidate_profiles (
		id, url, name, headline, location,
		email, phone, data, search_query, scraped_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW()
	)
	ON CONFLICT (url) DO UPDATE SET
		name = EXCLUDED.name,
		headline = EXCLUDED.headline,
		location = EXCLUDED.location,
		email = COALESCE(EXCLUDED.email, candidate_profiles.email),
		phone = COALESCE(EXCLUDED.phone, candidate_profiles.phone),
		data = EXCLUDED.data,
		search_query = EXCLUDED.search_query,
		scraped_at = EXCLUDED.scraped_at,
		updated_at = NOW()
	RETURNING id`
