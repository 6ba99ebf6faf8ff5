package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carverauto/sentinelcase/pkg/db"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// SourceInput carries the fields for registering a new signal source.
type SourceInput struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	RateLimitPerMin int    `json:"rate_limit_per_min,omitempty"`
}

const defaultSourceRateLimit = 60

// sourceKeyPrefix marks raw ingest keys so leaked strings are identifiable.
const sourceKeyPrefix = "sck_"

// CreateSource registers a source and returns it with the raw API key. The
// key is stored only as a hash; this is the one time the raw value is
// available.
func (s *Server) CreateSource(ctx context.Context, orgID, actorID uuid.UUID, input SourceInput) (*models.Source, string, error) {
	if _, err := s.store.GetSourceByName(ctx, orgID, input.Name); err == nil {
		return nil, "", fmt.Errorf("%w: source %q", models.ErrConflict, input.Name)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, "", err
	}

	rawKey, err := generateSourceKey()
	if err != nil {
		return nil, "", err
	}

	rateLimit := input.RateLimitPerMin
	if rateLimit <= 0 {
		rateLimit = defaultSourceRateLimit
	}

	source := &models.Source{
		ID:               uuid.New(),
		OrgID:            orgID,
		Name:             input.Name,
		Description:      input.Description,
		IngestAPIKeyHash: hashSourceKey(rawKey),
		Enabled:          true,
		RateLimitPerMin:  rateLimit,
		CreatedAt:        s.now().UTC(),
	}

	err = s.store.WithTx(ctx, func(tx db.Store) error {
		if err := tx.CreateSource(ctx, source); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, actorID.String(),
			"source.create", "source", source.ID.String(),
			map[string]string{"name": source.Name}))
	})
	if err != nil {
		return nil, "", err
	}

	return source, rawKey, nil
}

// GetSource returns one source in the caller's org.
func (s *Server) GetSource(ctx context.Context, orgID, sourceID uuid.UUID) (*models.Source, error) {
	return s.store.GetSource(ctx, orgID, sourceID)
}

// ListSources returns the org's sources, newest first.
func (s *Server) ListSources(ctx context.Context, orgID uuid.UUID) ([]models.Source, error) {
	return s.store.ListSources(ctx, orgID)
}

// UpdateSource applies a partial update to a source.
func (s *Server) UpdateSource(ctx context.Context, orgID, sourceID, actorID uuid.UUID, patch models.SourcePatch) error {
	return s.store.WithTx(ctx, func(tx db.Store) error {
		if err := tx.UpdateSource(ctx, orgID, sourceID, &patch); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, actorID.String(),
			"source.update", "source", sourceID.String(), nil))
	})
}

// RotateSourceKey replaces a source's ingest key and returns the new raw key.
func (s *Server) RotateSourceKey(ctx context.Context, orgID, sourceID, actorID uuid.UUID) (string, error) {
	rawKey, err := generateSourceKey()
	if err != nil {
		return "", err
	}

	err = s.store.WithTx(ctx, func(tx db.Store) error {
		if err := tx.UpdateSourceKey(ctx, orgID, sourceID, hashSourceKey(rawKey), s.now().UTC()); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, actorID.String(),
			"source.rotate_key", "source", sourceID.String(), nil))
	})
	if err != nil {
		return "", err
	}

	return rawKey, nil
}

// VerifySourceKey checks a presented raw key against a source's stored hash.
func VerifySourceKey(source *models.Source, rawKey string) bool {
	if source == nil || rawKey == "" {
		return false
	}

	expected := []byte(source.IngestAPIKeyHash)
	presented := []byte(hashSourceKey(rawKey))

	return subtle.ConstantTimeCompare(expected, presented) == 1
}

func generateSourceKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate source key: %w", err)
	}

	return sourceKeyPrefix + hex.EncodeToString(buf), nil
}

func hashSourceKey(rawKey string) string {
	digest := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(digest[:])
}
