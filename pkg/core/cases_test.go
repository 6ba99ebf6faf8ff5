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
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sentinelcase/pkg/models"
)

func timelineTypes(events []models.CaseTimelineEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType)
	}

	return out
}

func TestCreateCaseAssignsSequentialNumbers(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgA := uuid.New()
	orgB := uuid.New()
	actor := uuid.New()

	first, err := srv.CreateCase(context.Background(), orgA, actor, CaseInput{Title: "first"})
	require.NoError(t, err)
	assert.Equal(t, "CASE-000001", first.CaseNumber)
	assert.Equal(t, models.CaseStatusOpen, first.Status)

	second, err := srv.CreateCase(context.Background(), orgA, actor, CaseInput{Title: "second"})
	require.NoError(t, err)
	assert.Equal(t, "CASE-000002", second.CaseNumber)

	// Numbering is per org, not global.
	other, err := srv.CreateCase(context.Background(), orgB, actor, CaseInput{Title: "other"})
	require.NoError(t, err)
	assert.Equal(t, "CASE-000001", other.CaseNumber)

	timeline, err := srv.Timeline(context.Background(), orgA, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"case.created"}, timelineTypes(timeline))
}

func TestCreateCaseFromSignalPromotes(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgID := uuid.New()
	actor := uuid.New()

	ingested, err := srv.Ingest(context.Background(), orgID, uuid.New(),
		json.RawMessage(`{"title": "Beaconing host", "src_ip": "10.0.0.5", "domain": "evil.com"}`), "")
	require.NoError(t, err)

	c, err := srv.CreateCaseFromSignal(context.Background(), orgID, actor, ingested.SignalID, "")
	require.NoError(t, err)
	assert.Equal(t, "Beaconing host", c.Title, "case title defaults to the signal title")

	signal, err := store.GetSignal(context.Background(), orgID, ingested.SignalID)
	require.NoError(t, err)
	assert.Equal(t, models.SignalStatusPromoted, signal.Status)

	caseObservables, err := store.ListCaseObservables(context.Background(), orgID, c.ID)
	require.NoError(t, err)
	assert.Len(t, caseObservables, 2, "signal observables are copied onto the case")

	timeline, err := srv.Timeline(context.Background(), orgID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"case.created", "signal.attached"}, timelineTypes(timeline))
}

func TestCreateCaseFromSignalUnknownSignal(t *testing.T) {
	srv := newTestServer(newFakeStore())

	_, err := srv.CreateCaseFromSignal(context.Background(), uuid.New(), uuid.New(), uuid.New(), "x")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAttachAndDetachSignal(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgID := uuid.New()
	actor := uuid.New()

	c, err := srv.CreateCase(context.Background(), orgID, actor, CaseInput{Title: "hunt"})
	require.NoError(t, err)

	ingested, err := srv.Ingest(context.Background(), orgID, uuid.New(),
		json.RawMessage(`{"src_ip": "10.0.0.5"}`), "")
	require.NoError(t, err)

	require.NoError(t, srv.AttachSignal(context.Background(), orgID, c.ID, ingested.SignalID, actor))

	// Re-attaching is a no-op: no duplicate link, no duplicate event.
	require.NoError(t, srv.AttachSignal(context.Background(), orgID, c.ID, ingested.SignalID, actor))

	timeline, err := srv.Timeline(context.Background(), orgID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"case.created", "signal.attached"}, timelineTypes(timeline))

	require.NoError(t, srv.DetachSignal(context.Background(), orgID, c.ID, ingested.SignalID, actor))

	timeline, err = srv.Timeline(context.Background(), orgID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"case.created", "signal.attached", "signal.detached"}, timelineTypes(timeline))

	err = srv.DetachSignal(context.Background(), orgID, c.ID, ingested.SignalID, actor)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAttachSignalValidatesBothSides(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgID := uuid.New()
	actor := uuid.New()

	c, err := srv.CreateCase(context.Background(), orgID, actor, CaseInput{Title: "hunt"})
	require.NoError(t, err)

	err = srv.AttachSignal(context.Background(), orgID, c.ID, uuid.New(), actor)
	assert.ErrorIs(t, err, models.ErrNotFound)

	ingested, err := srv.Ingest(context.Background(), orgID, uuid.New(),
		json.RawMessage(`{"src_ip": "10.0.0.5"}`), "")
	require.NoError(t, err)

	err = srv.AttachSignal(context.Background(), orgID, uuid.New(), ingested.SignalID, actor)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCloseCase(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgID := uuid.New()
	actor := uuid.New()

	c, err := srv.CreateCase(context.Background(), orgID, actor, CaseInput{Title: "hunt"})
	require.NoError(t, err)

	require.NoError(t, srv.CloseCase(context.Background(), orgID, c.ID, actor, "false positive"))

	closed, err := srv.GetCase(context.Background(), orgID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusClosed, closed.Status)
	assert.Equal(t, "false positive", closed.CloseReason)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, actor, *closed.ClosedBy)
	assert.NotNil(t, closed.ClosedAt)

	timeline, err := srv.Timeline(context.Background(), orgID, c.ID)
	require.NoError(t, err)
	assert.Contains(t, timelineTypes(timeline), "case.closed")

	assert.Contains(t, store.auditActions(), "case.close")
}

func TestSetObservableDisposition(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgID := uuid.New()
	actor := uuid.New()

	ingested, err := srv.Ingest(context.Background(), orgID, uuid.New(),
		json.RawMessage(`{"domain": "evil.com"}`), "")
	require.NoError(t, err)

	c, err := srv.CreateCaseFromSignal(context.Background(), orgID, actor, ingested.SignalID, "")
	require.NoError(t, err)

	caseObservables, err := store.ListCaseObservables(context.Background(), orgID, c.ID)
	require.NoError(t, err)
	require.Len(t, caseObservables, 1)

	observableID := caseObservables[0].ObservableID

	require.NoError(t, srv.SetObservableDisposition(context.Background(), orgID, c.ID, observableID, actor,
		models.DispositionBenign, "corporate CDN"))

	caseObservables, err = store.ListCaseObservables(context.Background(), orgID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DispositionBenign, caseObservables[0].Disposition)
	assert.Equal(t, "corporate CDN", caseObservables[0].Notes)

	// Benign observables stop contributing to relatedness.
	related, err := srv.RelatedSignals(context.Background(), orgID, c.ID, 30)
	require.NoError(t, err)
	assert.Empty(t, related)

	err = srv.SetObservableDisposition(context.Background(), orgID, c.ID, uuid.New(), actor,
		models.DispositionMalicious, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTimelineUnknownCase(t *testing.T) {
	srv := newTestServer(newFakeStore())

	_, err := srv.Timeline(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHoldAndDismissSignal(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgID := uuid.New()
	actor := uuid.New()

	ingested, err := srv.Ingest(context.Background(), orgID, uuid.New(),
		json.RawMessage(`{"src_ip": "10.0.0.5"}`), "")
	require.NoError(t, err)

	require.NoError(t, srv.HoldSignal(context.Background(), orgID, ingested.SignalID, actor))

	signal, err := store.GetSignal(context.Background(), orgID, ingested.SignalID)
	require.NoError(t, err)
	assert.Equal(t, models.SignalStatusHeld, signal.Status)
	require.NotNil(t, signal.TriageDisposition)
	assert.Equal(t, "held", *signal.TriageDisposition)
	require.NotNil(t, signal.TriagedBy)
	assert.Equal(t, actor, *signal.TriagedBy)

	require.NoError(t, srv.DismissSignal(context.Background(), orgID, ingested.SignalID, actor))

	signal, err = store.GetSignal(context.Background(), orgID, ingested.SignalID)
	require.NoError(t, err)
	assert.Equal(t, models.SignalStatusDismissed, signal.Status)

	err = srv.HoldSignal(context.Background(), orgID, uuid.New(), actor)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSignalsForObservable(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgID := uuid.New()

	first, err := srv.Ingest(context.Background(), orgID, uuid.New(),
		json.RawMessage(`{"src_ip": "10.0.0.5", "event": "a"}`), "")
	require.NoError(t, err)

	second, err := srv.Ingest(context.Background(), orgID, uuid.New(),
		json.RawMessage(`{"dst_ip": "10.0.0.5", "event": "b"}`), "")
	require.NoError(t, err)

	observables, err := srv.ListObservables(context.Background(), orgID)
	require.NoError(t, err)
	require.Len(t, observables, 1)

	signals, err := srv.SignalsForObservable(context.Background(), orgID, observables[0].ID)
	require.NoError(t, err)
	require.Len(t, signals, 2)

	ids := []uuid.UUID{signals[0].ID, signals[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{first.SignalID, second.SignalID}, ids)

	_, err = srv.SignalsForObservable(context.Background(), orgID, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
