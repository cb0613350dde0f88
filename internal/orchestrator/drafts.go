package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"listing-generator/internal/listing"
)

const (
	legacyDraftKey    = "listing-generator-draft"
	draftKeyPrefix    = "listing-generator-draft"
	storedImageURLKey = "image_url"
)

// DraftKey is the per-user local storage key of the working draft.
func DraftKey(userID string) string {
	return draftKeyPrefix + ":" + userID
}

// KeyValueStore is local, device-scoped storage.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// storedDraft is a draft plus the image it was generated from. Legacy entries are
// bare drafts and load with no image.
type storedDraft struct {
	Draft    listing.Draft
	ImageURL *string
}

func (s storedDraft) MarshalJSON() ([]byte, error) {
	fields := map[string]any{
		"title":           s.Draft.Title,
		"description":     s.Draft.Description,
		"bullet_points":   s.Draft.BulletPoints,
		"price_min":       s.Draft.PriceMin,
		"price_max":       s.Draft.PriceMax,
		storedImageURLKey: s.ImageURL,
	}
	return json.Marshal(fields)
}

func decodeStoredDraft(raw string) (storedDraft, error) {
	draft, err := listing.Parse([]byte(raw))
	if err != nil {
		return storedDraft{}, err
	}

	var extra struct {
		ImageURL *string `json:"image_url"`
	}
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return storedDraft{}, err
	}
	return storedDraft{Draft: draft, ImageURL: extra.ImageURL}, nil
}

type draftStore struct {
	kv KeyValueStore
}

// load returns the user's draft, migrating the legacy unkeyed slot once.
// An unreadable or invalid entry loads as no draft.
func (s draftStore) load(ctx context.Context, userID string) (*storedDraft, error) {
	key := DraftKey(userID)

	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}
	if found {
		stored, err := decodeStoredDraft(raw)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("discarding invalid stored draft")
			return nil, nil
		}
		return &stored, nil
	}

	legacy, found, err := s.kv.Get(ctx, legacyDraftKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy draft: %w", err)
	}
	if !found {
		return nil, nil
	}

	stored, err := decodeStoredDraft(legacy)
	if err != nil {
		log.Warn().Err(err).Msg("discarding invalid legacy draft")
		return nil, nil
	}
	if err := s.save(ctx, userID, stored); err != nil {
		return nil, err
	}
	if err := s.kv.Delete(ctx, legacyDraftKey); err != nil {
		return nil, fmt.Errorf("failed to clear legacy draft: %w", err)
	}
	log.Info().Str("key", key).Msg("migrated legacy draft")
	return &stored, nil
}

func (s draftStore) save(ctx context.Context, userID string, stored storedDraft) error {
	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	if err := s.kv.Set(ctx, DraftKey(userID), string(raw)); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

func (s draftStore) clear(ctx context.Context, userID string) error {
	if err := s.kv.Delete(ctx, DraftKey(userID)); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}
