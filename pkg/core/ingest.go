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

package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carverauto/sentinelcase/pkg/db"
	"github.com/carverauto/sentinelcase/pkg/extract"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// ErrInvalidPayload indicates the ingest body is not a JSON object.
var ErrInvalidPayload = errors.New("payload must be a JSON object")

// IngestResult reports the outcome of one ingest call.
type IngestResult struct {
	SignalID uuid.UUID `json:"id"`
	Deduped  bool      `json:"deduped"`
}

const defaultSignalTitle = "Signal"

// Ingest persists one raw signal payload: dedupe lookup, signal creation,
// observable extraction and upsert, observation links, and the audit record,
// all in a single transaction. Calling it again with the same dedupe key is
// safe and returns the original signal with Deduped set.
func (s *Server) Ingest(ctx context.Context, orgID, sourceID uuid.UUID, payload json.RawMessage, idempotencyKey string) (*IngestResult, error) {
	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	// Stable serialization: encoding/json writes object keys sorted, so
	// byte-identical payloads and key-reordered equivalents fingerprint the
	// same.
	canonical, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	digest := sha256.Sum256(canonical)
	contentHash := hex.EncodeToString(digest[:])

	dedupeKey := idempotencyKey
	if dedupeKey == "" {
		dedupeKey = contentHash
	}

	if existing, err := s.store.GetSignalByDedupeKey(ctx, orgID, dedupeKey); err == nil {
		return &IngestResult{SignalID: existing.ID, Deduped: true}, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	now := s.now().UTC()

	signal := &models.Signal{
		ID:            uuid.New(),
		OrgID:         orgID,
		SourceID:      sourceID,
		ReceivedAt:    now,
		Title:         signalTitle(decoded),
		RawPayload:    canonical,
		PayloadSHA256: contentHash,
		DedupeKey:     dedupeKey,
		Status:        models.SignalStatusNew,
	}

	candidates := extract.Extract(decoded)

	txErr := s.store.WithTx(ctx, func(tx db.Store) error {
		if err := tx.CreateSignal(ctx, signal); err != nil {
			return err
		}

		for _, cand := range candidates {
			observable, err := tx.UpsertObservable(ctx, orgID, cand.Type, cand.Value, now)
			if err != nil {
				return err
			}

			obs := &models.Observation{
				ID:           uuid.New(),
				OrgID:        orgID,
				SignalID:     signal.ID,
				ObservableID: observable.ID,
				Role:         cand.Role,
				SeenAt:       now,
			}

			if len(cand.Context) > 0 {
				if raw, err := json.Marshal(cand.Context); err == nil {
					obs.Context = raw
				}
			}

			if err := tx.CreateObservation(ctx, obs); err != nil {
				return err
			}
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeSource, sourceID.String(),
			"signal.ingest", "signal", signal.ID.String(), nil))
	})

	if txErr != nil {
		// A racing writer with the same dedupe key won the insert. Recover
		// by returning the committed signal as a dedupe hit.
		if db.IsUniqueViolation(txErr) {
			existing, err := s.store.GetSignalByDedupeKey(ctx, orgID, dedupeKey)
			if err != nil {
				return nil, err
			}

			return &IngestResult{SignalID: existing.ID, Deduped: true}, nil
		}

		return nil, txErr
	}

	s.logger.Info().
		Str("org_id", orgID.String()).
		Str("signal_id", signal.ID.String()).
		Int("observables", len(candidates)).
		Msg("signal ingested")

	s.publish(orgID, "signal.ingested", IngestResult{SignalID: signal.ID})

	return &IngestResult{SignalID: signal.ID, Deduped: false}, nil
}

func signalTitle(payload map[string]interface{}) string {
	if title, ok := payload["title"].(string); ok && title != "" {
		return title
	}

	return defaultSignalTitle
}
