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

// Package identity carries the caller's org scope and actor identity through
// request contexts. The core never authenticates; it only records who acted.
// Every store query still takes the org id as an explicit parameter. The
// context is a transport convenience for handlers, not an ambient scope.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type ctxKey string

const identityCtxKey ctxKey = "identity"

// ErrNoIdentityInContext indicates no caller identity was attached.
var ErrNoIdentityInContext = errors.New("no identity in context")

// Identity names the org a request is scoped to and the actor performing it.
type Identity struct {
	OrgID     uuid.UUID `json:"org_id"`
	ActorType string    `json:"actor_type"`
	ActorID   string    `json:"actor_id"`
}

// String returns a human-readable representation of the identity.
func (i Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", i.OrgID, i.ActorType, i.ActorID)
}

// WithContext returns a new context with the identity attached.
func WithContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// FromContext extracts the caller identity from a context.
// Returns ErrNoIdentityInContext if none is present.
func FromContext(ctx context.Context) (*Identity, error) {
	id, ok := ctx.Value(identityCtxKey).(*Identity)
	if !ok || id == nil {
		return nil, ErrNoIdentityInContext
	}

	return id, nil
}

// MustFromContext extracts the caller identity or panics.
// Use only after middleware has validated identity presence.
func MustFromContext(ctx context.Context) *Identity {
	id, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}

	return id
}

// OrgFromContext extracts just the org id from a context.
// Returns uuid.Nil if no identity is present.
func OrgFromContext(ctx context.Context) uuid.UUID {
	id, err := FromContext(ctx)
	if err != nil {
		return uuid.Nil
	}

	return id.OrgID
}
