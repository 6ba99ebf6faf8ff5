/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package events publishes post-commit domain events over NATS. Publishing
// is fire-and-forget: a failed publish is logged, never surfaced to the
// request that triggered it.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/carverauto/sentinelcase/pkg/logger"
	"github.com/carverauto/sentinelcase/pkg/models"
)

const defaultSubjectPrefix = "sentinelcase.events"

// Publisher emits org-scoped domain events.
type Publisher interface {
	Publish(orgID uuid.UUID, eventType string, payload interface{})
	Close()
}

// Envelope is the wire form of a published event.
type Envelope struct {
	OrgID     uuid.UUID       `json:"org_id"`
	EventType string          `json:"event_type"`
	EmittedAt time.Time       `json:"emitted_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type natsPublisher struct {
	conn   *nats.Conn
	prefix string
	logger logger.Logger
}

// NewNATSPublisher connects to the configured NATS server. A nil config or
// empty URL disables publishing and returns (nil, nil).
func NewNATSPublisher(cfg *models.NATSConfig, log logger.Logger) (Publisher, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("events: connect nats: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}

	return &natsPublisher{
		conn:   conn,
		prefix: prefix,
		logger: log.WithComponent("events"),
	}, nil
}

// Subject returns the org-prefixed NATS subject for an event type.
// Example: sentinelcase.events.<org>.signal.ingested
func (p *natsPublisher) subject(orgID uuid.UUID, eventType string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, orgID, eventType)
}

func (p *natsPublisher) Publish(orgID uuid.UUID, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warn().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		return
	}

	env := Envelope{
		OrgID:     orgID,
		EventType: eventType,
		EmittedAt: time.Now().UTC(),
		Payload:   raw,
	}

	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Warn().Err(err).Str("event_type", eventType).Msg("marshal event envelope")
		return
	}

	if err := p.conn.Publish(p.subject(orgID, eventType), data); err != nil {
		p.logger.Warn().Err(err).Str("event_type", eventType).Msg("publish event")
	}
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
