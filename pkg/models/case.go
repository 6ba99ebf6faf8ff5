package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CaseStatus represents the lifecycle state of a case.
type CaseStatus string

const (
	CaseStatusOpen   CaseStatus = "open"
	CaseStatusClosed CaseStatus = "closed"
)

// ObservableDisposition is an analyst judgment on an observable within a case.
type ObservableDisposition string

const (
	DispositionBenign    ObservableDisposition = "benign"
	DispositionMalicious ObservableDisposition = "malicious"
	DispositionUnknown   ObservableDisposition = "unknown"
)

// Case is an analyst-created investigation grouping signals and observables.
type Case struct {
	ID          uuid.UUID  `json:"id"`
	OrgID       uuid.UUID  `json:"org_id"`
	CaseNumber  string     `json:"case_number"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      CaseStatus `json:"status"`
	Severity    string     `json:"severity,omitempty"`
	Confidence  *int       `json:"confidence,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedBy    *uuid.UUID `json:"closed_by,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CloseReason string     `json:"close_reason,omitempty"`
}

// CaseSignal attaches a signal to a case. Unique per (case, signal).
type CaseSignal struct {
	ID         uuid.UUID `json:"id"`
	OrgID      uuid.UUID `json:"org_id"`
	CaseID     uuid.UUID `json:"case_id"`
	SignalID   uuid.UUID `json:"signal_id"`
	AttachedBy uuid.UUID `json:"attached_by"`
	AttachedAt time.Time `json:"attached_at"`
}

// CaseObservable marks an observable as being of interest to a case, with an
// analyst disposition. Unique per (case, observable).
type CaseObservable struct {
	ID           uuid.UUID             `json:"id"`
	OrgID        uuid.UUID             `json:"org_id"`
	CaseID       uuid.UUID             `json:"case_id"`
	ObservableID uuid.UUID             `json:"observable_id"`
	Disposition  ObservableDisposition `json:"disposition,omitempty"`
	AddedBy      uuid.UUID             `json:"added_by"`
	AddedAt      time.Time             `json:"added_at"`
	Notes        string                `json:"notes,omitempty"`
}

// CaseTimelineEvent is one entry in a case's append-only narrative log.
type CaseTimelineEvent struct {
	ID        uuid.UUID       `json:"id"`
	OrgID     uuid.UUID       `json:"org_id"`
	CaseID    uuid.UUID       `json:"case_id"`
	EventType string          `json:"event_type"`
	ActorType string          `json:"actor_type"`
	ActorID   string          `json:"actor_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Details   json.RawMessage `json:"details,omitempty"`
}

// RelatedSignal is one ranked entry returned by the relatedness scorer.
type RelatedSignal struct {
	SignalID uuid.UUID      `json:"signal_id"`
	Score    float64        `json:"score"`
	Matches  []RelatedMatch `json:"matches"`
}

// RelatedMatch explains one observation contributing to a related signal's
// score.
type RelatedMatch struct {
	ObservableID uuid.UUID      `json:"observable_id"`
	Type         ObservableType `json:"type"`
	Role         string         `json:"role,omitempty"`
}
