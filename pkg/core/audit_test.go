package core

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListAuditNewestFirst(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgID := uuid.New()
	actor := uuid.New()

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return clock }

	_, err := srv.CreateCase(context.Background(), orgID, actor, CaseInput{Title: "first"})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)

	ingested, err := srv.Ingest(context.Background(), orgID, uuid.New(),
		json.RawMessage(`{"src_ip": "10.0.0.5"}`), "")
	require.NoError(t, err)

	clock = clock.Add(time.Hour)

	require.NoError(t, srv.HoldSignal(context.Background(), orgID, ingested.SignalID, actor))

	entries, err := srv.ListAudit(context.Background(), orgID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "signal.hold", entries[0].Action)
	assert.Equal(t, "signal.ingest", entries[1].Action)
	assert.Equal(t, "case.create", entries[2].Action)

	// Entries are stamped with the server clock, not the wall clock.
	assert.Equal(t, time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC), entries[0].Timestamp)
	assert.Equal(t, time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC), entries[1].Timestamp)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), entries[2].Timestamp)
}

func TestListAuditHonorsLimit(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgID := uuid.New()
	actor := uuid.New()

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	srv.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		_, err := srv.CreateCase(context.Background(), orgID, actor, CaseInput{Title: "hunt"})
		require.NoError(t, err)

		clock = clock.Add(time.Minute)
	}

	entries, err := srv.ListAudit(context.Background(), orgID, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// A non-positive limit falls back to the default page size.
	entries, err = srv.ListAudit(context.Background(), orgID, -1)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestListAuditOrgScoped(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)

	orgA := uuid.New()
	orgB := uuid.New()
	actor := uuid.New()

	_, err := srv.CreateCase(context.Background(), orgA, actor, CaseInput{Title: "a"})
	require.NoError(t, err)

	entries, err := srv.ListAudit(context.Background(), orgB, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
