package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Actor types recorded in audit and timeline entries.
const (
	ActorTypeUser   = "user"
	ActorTypeSource = "source"
	ActorTypeSystem = "system"
)

// AuditLog records one mutating action for provenance. Entries are written in
// the same transaction as the mutation they describe.
type AuditLog struct {
	ID         uuid.UUID       `json:"id"`
	OrgID      uuid.UUID       `json:"org_id"`
	ActorType  string          `json:"actor_type"`
	ActorID    string          `json:"actor_id,omitempty"`
	Action     string          `json:"action"`
	TargetType string          `json:"target_type,omitempty"`
	TargetID   string          `json:"target_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	IPAddress  string          `json:"ip_address,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	Meta       json.RawMessage `json:"meta,omitempty"`
}
