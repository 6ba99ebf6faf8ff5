package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SignalStatus represents the triage lifecycle state of a signal.
type SignalStatus string

const (
	SignalStatusNew       SignalStatus = "new"
	SignalStatusHeld      SignalStatus = "held"
	SignalStatusDismissed SignalStatus = "dismissed"
	SignalStatusPromoted  SignalStatus = "promoted"
)

// Signal is one ingested security event. The raw payload is immutable after
// creation; status and triage metadata are the only mutable fields.
type Signal struct {
	ID                uuid.UUID       `json:"id"`
	OrgID             uuid.UUID       `json:"org_id"`
	SourceID          uuid.UUID       `json:"source_id"`
	ReceivedAt        time.Time       `json:"received_at"`
	EventTime         *time.Time      `json:"event_time,omitempty"`
	Title             string          `json:"title"`
	RawPayload        json.RawMessage `json:"raw_payload"`
	PayloadSHA256     string          `json:"payload_sha256"`
	DedupeKey         string          `json:"dedupe_key"`
	Status            SignalStatus    `json:"status"`
	TriageDisposition *string         `json:"triage_disposition,omitempty"`
	TriagedBy         *uuid.UUID      `json:"triaged_by,omitempty"`
	TriagedAt         *time.Time      `json:"triaged_at,omitempty"`
}
