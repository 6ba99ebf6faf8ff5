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

// Package core implements the triage and case-management services: signal
// ingestion, observable bookkeeping, case lifecycle, and relatedness scoring.
// All operations take the caller's org id explicitly.
package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/sentinelcase/pkg/db"
	"github.com/carverauto/sentinelcase/pkg/events"
	"github.com/carverauto/sentinelcase/pkg/logger"
)

const defaultRelatedWindowDays = 30

// Server wires the store, event publisher, and logger behind the service
// operations.
type Server struct {
	store      db.Service
	events     events.Publisher
	logger     logger.Logger
	windowDays int
	now        func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithEventPublisher attaches a post-commit event publisher. A nil publisher
// disables events.
func WithEventPublisher(p events.Publisher) Option {
	return func(s *Server) {
		s.events = p
	}
}

// WithRelatedWindowDays overrides the default relatedness lookback window.
func WithRelatedWindowDays(days int) Option {
	return func(s *Server) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// NewServer builds the service layer on top of a store.
func NewServer(store db.Service, log logger.Logger, options ...Option) *Server {
	s := &Server{
		store:      store,
		logger:     log.WithComponent("core"),
		windowDays: defaultRelatedWindowDays,
		now:        time.Now,
	}

	for _, o := range options {
		o(s)
	}

	return s
}

// publish emits a domain event after a successful commit. No-op without a
// publisher.
func (s *Server) publish(orgID uuid.UUID, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}

	s.events.Publish(orgID, eventType, payload)
}
