package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ObservableType enumerates the indicator types the extractor recognizes.
type ObservableType string

const (
	ObservableTypeIP       ObservableType = "ip"
	ObservableTypeDomain   ObservableType = "domain"
	ObservableTypeURL      ObservableType = "url"
	ObservableTypeSHA256   ObservableType = "sha256"
	ObservableTypeMD5      ObservableType = "md5"
	ObservableTypeEmail    ObservableType = "email"
	ObservableTypeUsername ObservableType = "username"
	ObservableTypeHostname ObservableType = "hostname"
)

// Observable is a normalized indicator value, unique per
// (org, type, value_normalized). It is never deleted; last_seen advances on
// every sighting.
type Observable struct {
	ID              uuid.UUID      `json:"id"`
	OrgID           uuid.UUID      `json:"org_id"`
	Type            ObservableType `json:"type"`
	ValueNormalized string         `json:"value_normalized"`
	FirstSeenAt     time.Time      `json:"first_seen_at"`
	LastSeenAt      time.Time      `json:"last_seen_at"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Observation links one signal to one observable under an optional semantic
// role. Unique per (signal, observable, role); immutable once written.
type Observation struct {
	ID           uuid.UUID       `json:"id"`
	OrgID        uuid.UUID       `json:"org_id"`
	SignalID     uuid.UUID       `json:"signal_id"`
	ObservableID uuid.UUID       `json:"observable_id"`
	Role         string          `json:"role,omitempty"`
	SeenAt       time.Time       `json:"seen_at"`
	Context      json.RawMessage `json:"context,omitempty"`
}
