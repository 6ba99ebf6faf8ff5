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
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/sentinelcase/pkg/extract"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// RelatedSignals ranks the org's signals by shared non-benign observables
// with the case, within a lookback window (days; <=0 uses the configured
// default). Every contributing match is retained so callers can explain the
// ranking.
//
// The case's own attached signals are not excluded: a signal whose
// observations fall inside the window ranks itself. That mirrors the
// established triage behavior; see TestRelatedSignalsIncludesOwnSignal.
func (s *Server) RelatedSignals(ctx context.Context, orgID, caseID uuid.UUID, windowDays int) ([]models.RelatedSignal, error) {
	if _, err := s.store.GetCase(ctx, orgID, caseID); err != nil {
		return nil, err
	}

	caseObservables, err := s.store.ListCaseObservables(ctx, orgID, caseID)
	if err != nil {
		return nil, err
	}

	observableIDs := make([]uuid.UUID, 0, len(caseObservables))

	for _, co := range caseObservables {
		if co.Disposition == models.DispositionBenign {
			continue
		}

		observableIDs = append(observableIDs, co.ObservableID)
	}

	if len(observableIDs) == 0 {
		return []models.RelatedSignal{}, nil
	}

	if windowDays <= 0 {
		windowDays = s.windowDays
	}

	now := s.now().UTC()
	cutoff := now.AddDate(0, 0, -windowDays)

	observations, err := s.store.ListObservationsSince(ctx, orgID, observableIDs, cutoff)
	if err != nil {
		return nil, err
	}

	observables, err := s.store.GetObservablesByIDs(ctx, orgID, observableIDs)
	if err != nil {
		return nil, err
	}

	typeByID := make(map[uuid.UUID]models.ObservableType, len(observables))
	for _, o := range observables {
		typeByID[o.ID] = o.Type
	}

	scores := make(map[uuid.UUID]*models.RelatedSignal)

	for _, obs := range observations {
		entry, ok := scores[obs.SignalID]
		if !ok {
			entry = &models.RelatedSignal{SignalID: obs.SignalID}
			scores[obs.SignalID] = entry
		}

		obsType := typeByID[obs.ObservableID]
		base := extract.Weight(obsType)

		entry.Score += round2(base * recencyMultiplier(now.Sub(obs.SeenAt)))
		entry.Matches = append(entry.Matches, models.RelatedMatch{
			ObservableID: obs.ObservableID,
			Type:         obsType,
			Role:         obs.Role,
		})
	}

	out := make([]models.RelatedSignal, 0, len(scores))
	for _, entry := range scores {
		out = append(out, *entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	return out, nil
}

// recencyMultiplier boosts sightings from the last day and week.
func recencyMultiplier(age time.Duration) float64 {
	switch {
	case age <= 24*time.Hour:
		return 1.3
	case age <= 7*24*time.Hour:
		return 1.1
	default:
		return 1.0
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
