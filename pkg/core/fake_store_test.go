package core

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carverauto/sentinelcase/pkg/db"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// fakeStore is an in-memory db.Service used by the service-layer tests. It
// enforces the same uniqueness rules as the schema, reporting duplicates as
// Postgres unique violations so the pipeline's race recovery is exercised.
type fakeStore struct {
	mu sync.Mutex

	signals         map[uuid.UUID]*models.Signal
	observables     []*models.Observable
	observations    []*models.Observation
	cases           map[uuid.UUID]*models.Case
	caseSignals     []*models.CaseSignal
	caseObservables []*models.CaseObservable
	timeline        []*models.CaseTimelineEvent
	sources         map[uuid.UUID]*models.Source
	audits          []*models.AuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		signals: make(map[uuid.UUID]*models.Signal),
		cases:   make(map[uuid.UUID]*models.Case),
		sources: make(map[uuid.UUID]*models.Source),
	}
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505"}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(db.Store) error) error {
	return fn(f)
}

func (f *fakeStore) Close() {}

// Signals.

func (f *fakeStore) CreateSignal(_ context.Context, signal *models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.signals {
		if s.OrgID == signal.OrgID && s.DedupeKey == signal.DedupeKey {
			return uniqueViolation()
		}
	}

	cp := *signal
	f.signals[signal.ID] = &cp

	return nil
}

func (f *fakeStore) GetSignal(_ context.Context, orgID, signalID uuid.UUID) (*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.signals[signalID]
	if !ok || s.OrgID != orgID {
		return nil, models.ErrNotFound
	}

	cp := *s

	return &cp, nil
}

func (f *fakeStore) GetSignalByDedupeKey(_ context.Context, orgID uuid.UUID, dedupeKey string) (*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.signals {
		if s.OrgID == orgID && s.DedupeKey == dedupeKey {
			cp := *s
			return &cp, nil
		}
	}

	return nil, models.ErrNotFound
}

func (f *fakeStore) ListSignals(_ context.Context, orgID uuid.UUID) ([]models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Signal

	for _, s := range f.signals {
		if s.OrgID == orgID {
			out = append(out, *s)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })

	return out, nil
}

func (f *fakeStore) UpdateSignalTriage(_ context.Context, orgID, signalID uuid.UUID, status models.SignalStatus, disposition string, actorID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.signals[signalID]
	if !ok || s.OrgID != orgID {
		return models.ErrNotFound
	}

	s.Status = status
	s.TriageDisposition = &disposition
	s.TriagedBy = &actorID
	s.TriagedAt = &at

	return nil
}

func (f *fakeStore) SetSignalStatus(_ context.Context, orgID, signalID uuid.UUID, status models.SignalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.signals[signalID]
	if !ok || s.OrgID != orgID {
		return models.ErrNotFound
	}

	s.Status = status

	return nil
}

// Observables and observations.

func (f *fakeStore) UpsertObservable(_ context.Context, orgID uuid.UUID, obsType models.ObservableType, value string, seenAt time.Time) (*models.Observable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range f.observables {
		if o.OrgID == orgID && o.Type == obsType && o.ValueNormalized == value {
			if seenAt.After(o.LastSeenAt) {
				o.LastSeenAt = seenAt
			}

			cp := *o

			return &cp, nil
		}
	}

	o := &models.Observable{
		ID:              uuid.New(),
		OrgID:           orgID,
		Type:            obsType,
		ValueNormalized: value,
		FirstSeenAt:     seenAt,
		LastSeenAt:      seenAt,
		CreatedAt:       seenAt,
	}
	f.observables = append(f.observables, o)

	cp := *o

	return &cp, nil
}

func (f *fakeStore) GetObservable(_ context.Context, orgID, observableID uuid.UUID) (*models.Observable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, o := range f.observables {
		if o.ID == observableID && o.OrgID == orgID {
			cp := *o
			return &cp, nil
		}
	}

	return nil, models.ErrNotFound
}

func (f *fakeStore) GetObservablesByIDs(_ context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.Observable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idSet := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}

	var out []models.Observable

	for _, o := range f.observables {
		if _, ok := idSet[o.ID]; ok && o.OrgID == orgID {
			out = append(out, *o)
		}
	}

	return out, nil
}

func (f *fakeStore) ListObservables(_ context.Context, orgID uuid.UUID) ([]models.Observable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Observable

	for _, o := range f.observables {
		if o.OrgID == orgID {
			out = append(out, *o)
		}
	}

	return out, nil
}

func (f *fakeStore) CreateObservation(_ context.Context, obs *models.Observation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.observations {
		if existing.SignalID == obs.SignalID &&
			existing.ObservableID == obs.ObservableID &&
			existing.Role == obs.Role {
			return nil // ON CONFLICT DO NOTHING
		}
	}

	cp := *obs
	f.observations = append(f.observations, &cp)

	return nil
}

func (f *fakeStore) ListObservationsBySignal(_ context.Context, orgID, signalID uuid.UUID) ([]models.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Observation

	for _, o := range f.observations {
		if o.OrgID == orgID && o.SignalID == signalID {
			out = append(out, *o)
		}
	}

	return out, nil
}

func (f *fakeStore) ListObservationsByObservable(_ context.Context, orgID, observableID uuid.UUID) ([]models.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Observation

	for _, o := range f.observations {
		if o.OrgID == orgID && o.ObservableID == observableID {
			out = append(out, *o)
		}
	}

	return out, nil
}

func (f *fakeStore) ListObservationsSince(_ context.Context, orgID uuid.UUID, observableIDs []uuid.UUID, cutoff time.Time) ([]models.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idSet := make(map[uuid.UUID]struct{}, len(observableIDs))
	for _, id := range observableIDs {
		idSet[id] = struct{}{}
	}

	var out []models.Observation

	for _, o := range f.observations {
		if o.OrgID != orgID {
			continue
		}

		if _, ok := idSet[o.ObservableID]; !ok {
			continue
		}

		if o.SeenAt.Before(cutoff) {
			continue
		}

		out = append(out, *o)
	}

	return out, nil
}

// Cases.

func (f *fakeStore) CountCases(_ context.Context, orgID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64

	for _, c := range f.cases {
		if c.OrgID == orgID {
			count++
		}
	}

	return count, nil
}

func (f *fakeStore) CreateCase(_ context.Context, c *models.Case) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.cases {
		if existing.OrgID == c.OrgID && existing.CaseNumber == c.CaseNumber {
			return uniqueViolation()
		}
	}

	cp := *c
	f.cases[c.ID] = &cp

	return nil
}

func (f *fakeStore) GetCase(_ context.Context, orgID, caseID uuid.UUID) (*models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.cases[caseID]
	if !ok || c.OrgID != orgID {
		return nil, models.ErrNotFound
	}

	cp := *c

	return &cp, nil
}

func (f *fakeStore) ListCases(_ context.Context, orgID uuid.UUID) ([]models.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Case

	for _, c := range f.cases {
		if c.OrgID == orgID {
			out = append(out, *c)
		}
	}

	return out, nil
}

func (f *fakeStore) CloseCase(_ context.Context, orgID, caseID, closedBy uuid.UUID, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.cases[caseID]
	if !ok || c.OrgID != orgID {
		return models.ErrNotFound
	}

	c.Status = models.CaseStatusClosed
	c.ClosedBy = &closedBy
	c.ClosedAt = &at
	c.CloseReason = reason

	return nil
}

func (f *fakeStore) AttachCaseSignal(_ context.Context, cs *models.CaseSignal) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.caseSignals {
		if existing.CaseID == cs.CaseID && existing.SignalID == cs.SignalID {
			return false, nil
		}
	}

	cp := *cs
	f.caseSignals = append(f.caseSignals, &cp)

	return true, nil
}

func (f *fakeStore) DetachCaseSignal(_ context.Context, orgID, caseID, signalID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, cs := range f.caseSignals {
		if cs.OrgID == orgID && cs.CaseID == caseID && cs.SignalID == signalID {
			f.caseSignals = append(f.caseSignals[:i], f.caseSignals[i+1:]...)
			return nil
		}
	}

	return models.ErrNotFound
}

func (f *fakeStore) AddCaseObservable(_ context.Context, co *models.CaseObservable) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.caseObservables {
		if existing.CaseID == co.CaseID && existing.ObservableID == co.ObservableID {
			return false, nil
		}
	}

	cp := *co
	f.caseObservables = append(f.caseObservables, &cp)

	return true, nil
}

func (f *fakeStore) ListCaseObservables(_ context.Context, orgID, caseID uuid.UUID) ([]models.CaseObservable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.CaseObservable

	for _, co := range f.caseObservables {
		if co.OrgID == orgID && co.CaseID == caseID {
			out = append(out, *co)
		}
	}

	return out, nil
}

func (f *fakeStore) SetCaseObservableDisposition(_ context.Context, orgID, caseID, observableID uuid.UUID, disposition models.ObservableDisposition, notes string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, co := range f.caseObservables {
		if co.OrgID == orgID && co.CaseID == caseID && co.ObservableID == observableID {
			co.Disposition = disposition
			co.Notes = notes

			return nil
		}
	}

	return models.ErrNotFound
}

func (f *fakeStore) AppendTimelineEvent(_ context.Context, event *models.CaseTimelineEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *event
	f.timeline = append(f.timeline, &cp)

	return nil
}

func (f *fakeStore) ListTimeline(_ context.Context, orgID, caseID uuid.UUID) ([]models.CaseTimelineEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.CaseTimelineEvent

	for _, e := range f.timeline {
		if e.OrgID == orgID && e.CaseID == caseID {
			out = append(out, *e)
		}
	}

	return out, nil
}

// Sources.

func (f *fakeStore) CreateSource(_ context.Context, source *models.Source) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.sources {
		if existing.OrgID == source.OrgID && existing.Name == source.Name {
			return models.ErrConflict
		}
	}

	cp := *source
	f.sources[source.ID] = &cp

	return nil
}

func (f *fakeStore) GetSource(_ context.Context, orgID, sourceID uuid.UUID) (*models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sources[sourceID]
	if !ok || s.OrgID != orgID {
		return nil, models.ErrNotFound
	}

	cp := *s

	return &cp, nil
}

func (f *fakeStore) GetSourceByName(_ context.Context, orgID uuid.UUID, name string) (*models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.sources {
		if s.OrgID == orgID && s.Name == name {
			cp := *s
			return &cp, nil
		}
	}

	return nil, models.ErrNotFound
}

func (f *fakeStore) ListSources(_ context.Context, orgID uuid.UUID) ([]models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Source

	for _, s := range f.sources {
		if s.OrgID == orgID {
			out = append(out, *s)
		}
	}

	return out, nil
}

func (f *fakeStore) UpdateSource(_ context.Context, orgID, sourceID uuid.UUID, patch *models.SourcePatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sources[sourceID]
	if !ok || s.OrgID != orgID {
		return models.ErrNotFound
	}

	if patch.Description != nil {
		s.Description = *patch.Description
	}

	if patch.Enabled != nil {
		s.Enabled = *patch.Enabled
	}

	if patch.RateLimitPerMin != nil {
		s.RateLimitPerMin = *patch.RateLimitPerMin
	}

	return nil
}

func (f *fakeStore) UpdateSourceKey(_ context.Context, orgID, sourceID uuid.UUID, keyHash string, rotatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sources[sourceID]
	if !ok || s.OrgID != orgID {
		return models.ErrNotFound
	}

	s.IngestAPIKeyHash = keyHash
	s.RotatedAt = &rotatedAt

	return nil
}

// Audit.

func (f *fakeStore) InsertAuditLog(_ context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *entry
	f.audits = append(f.audits, &cp)

	return nil
}

func (f *fakeStore) ListAuditLogs(_ context.Context, orgID uuid.UUID, limit int) ([]models.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.AuditLog

	for _, a := range f.audits {
		if a.OrgID == orgID {
			out = append(out, *a)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (f *fakeStore) auditActions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.audits))
	for _, a := range f.audits {
		out = append(out, a.Action)
	}

	return out
}
