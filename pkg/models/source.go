package models

import (
	"time"

	"github.com/google/uuid"
)

// Source is a registered signal submitter. The ingest API key is stored only
// as a hash; the raw key is returned once at creation or rotation.
type Source struct {
	ID              uuid.UUID  `json:"id"`
	OrgID           uuid.UUID  `json:"org_id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	IngestAPIKeyHash string    `json:"-"`
	Enabled         bool       `json:"enabled"`
	RateLimitPerMin int        `json:"rate_limit_per_min"`
	CreatedAt       time.Time  `json:"created_at"`
	RotatedAt       *time.Time `json:"rotated_at,omitempty"`
}

// SourcePatch carries optional field updates for a source.
type SourcePatch struct {
	Description     *string `json:"description,omitempty"`
	Enabled         *bool   `json:"enabled,omitempty"`
	RateLimitPerMin *int    `json:"rate_limit_per_min,omitempty"`
}
