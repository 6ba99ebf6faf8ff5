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

package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/carverauto/sentinelcase/pkg/core"
	"github.com/carverauto/sentinelcase/pkg/identity"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// Identity headers set by the authenticating gateway.
const (
	headerOrgID   = "X-Org-ID"
	headerActorID = "X-Actor-ID"
	headerAPIKey  = "X-API-Key"
)

// commonMiddleware logs every request and handles CORS preflight when the
// server is configured for cross-origin clients.
func (s *APIServer) commonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Msg("request")

		if s.corsOpen {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Org-ID, X-Actor-ID, Idempotency-Key")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// identityMiddleware requires the gateway-set org and actor headers and
// attaches them to the request context.
func (s *APIServer) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, err := uuid.Parse(r.Header.Get(headerOrgID))
		if err != nil {
			http.Error(w, "missing or invalid org id", http.StatusUnauthorized)
			return
		}

		actorID, err := uuid.Parse(r.Header.Get(headerActorID))
		if err != nil {
			http.Error(w, "missing or invalid actor id", http.StatusUnauthorized)
			return
		}

		ctx := identity.WithContext(r.Context(), &identity.Identity{
			OrgID:     orgID,
			ActorType: models.ActorTypeUser,
			ActorID:   actorID.String(),
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sourceAuthMiddleware authenticates ingest calls against the source's API
// key. The org header scopes the lookup; the key proves the caller owns the
// source named in the path.
func (s *APIServer) sourceAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, err := uuid.Parse(r.Header.Get(headerOrgID))
		if err != nil {
			http.Error(w, "missing or invalid org id", http.StatusUnauthorized)
			return
		}

		sourceID, err := uuid.Parse(mux.Vars(r)["source_id"])
		if err != nil {
			http.Error(w, "invalid source id", http.StatusBadRequest)
			return
		}

		source, err := s.core.GetSource(r.Context(), orgID, sourceID)
		if err != nil {
			// Unknown source reads the same as a bad key.
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if !source.Enabled || !core.VerifySourceKey(source, r.Header.Get(headerAPIKey)) {
			s.logger.Warn().
				Str("org_id", orgID.String()).
				Str("source_id", sourceID.String()).
				Msg("rejected ingest credentials")
			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		ctx := identity.WithContext(r.Context(), &identity.Identity{
			OrgID:     orgID,
			ActorType: models.ActorTypeSource,
			ActorID:   sourceID.String(),
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
