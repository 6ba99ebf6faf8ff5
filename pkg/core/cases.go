package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/carverauto/sentinelcase/pkg/db"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// CaseInput carries the analyst-supplied fields for a new case.
type CaseInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Confidence  *int   `json:"confidence,omitempty"`
}

// CreateCase opens a new investigation with the next sequential case number
// for the org.
func (s *Server) CreateCase(ctx context.Context, orgID, createdBy uuid.UUID, input CaseInput) (*models.Case, error) {
	var created *models.Case

	err := s.store.WithTx(ctx, func(tx db.Store) error {
		c, err := s.createCaseTx(ctx, tx, orgID, createdBy, input)
		if err != nil {
			return err
		}

		created = c

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, createdBy.String(),
			"case.create", "case", c.ID.String(), nil))
	})
	if err != nil {
		return nil, err
	}

	s.publish(orgID, "case.created", created)

	return created, nil
}

// createCaseTx allocates the case number, inserts the case, and records the
// case.created timeline event, all on the caller's transaction.
func (s *Server) createCaseTx(ctx context.Context, tx db.Store, orgID, createdBy uuid.UUID, input CaseInput) (*models.Case, error) {
	count, err := tx.CountCases(ctx, orgID)
	if err != nil {
		return nil, err
	}

	c := &models.Case{
		ID:          uuid.New(),
		OrgID:       orgID,
		CaseNumber:  fmt.Sprintf("CASE-%06d", count+1),
		Title:       input.Title,
		Description: input.Description,
		Status:      models.CaseStatusOpen,
		Severity:    input.Severity,
		Confidence:  input.Confidence,
		CreatedBy:   createdBy,
		CreatedAt:   s.now().UTC(),
	}

	if err := tx.CreateCase(ctx, c); err != nil {
		return nil, err
	}

	if err := tx.AppendTimelineEvent(ctx, s.timelineEvent(orgID, c.ID, "case.created",
		createdBy, map[string]string{"title": c.Title})); err != nil {
		return nil, err
	}

	return c, nil
}

// CreateCaseFromSignal promotes a signal into a new case: the signal is
// attached, marked promoted, and its observables become case observables.
func (s *Server) CreateCaseFromSignal(ctx context.Context, orgID, createdBy, signalID uuid.UUID, title string) (*models.Case, error) {
	signal, err := s.store.GetSignal(ctx, orgID, signalID)
	if err != nil {
		return nil, err
	}

	if title == "" {
		title = signal.Title
	}

	var created *models.Case

	err = s.store.WithTx(ctx, func(tx db.Store) error {
		c, err := s.createCaseTx(ctx, tx, orgID, createdBy, CaseInput{Title: title})
		if err != nil {
			return err
		}

		created = c

		if _, err := tx.AttachCaseSignal(ctx, &models.CaseSignal{
			ID:         uuid.New(),
			OrgID:      orgID,
			CaseID:     c.ID,
			SignalID:   signal.ID,
			AttachedBy: createdBy,
			AttachedAt: s.now().UTC(),
		}); err != nil {
			return err
		}

		if err := tx.SetSignalStatus(ctx, orgID, signal.ID, models.SignalStatusPromoted); err != nil {
			return err
		}

		observations, err := tx.ListObservationsBySignal(ctx, orgID, signal.ID)
		if err != nil {
			return err
		}

		for _, obs := range observations {
			if _, err := tx.AddCaseObservable(ctx, &models.CaseObservable{
				ID:           uuid.New(),
				OrgID:        orgID,
				CaseID:       c.ID,
				ObservableID: obs.ObservableID,
				AddedBy:      createdBy,
				AddedAt:      s.now().UTC(),
			}); err != nil {
				return err
			}
		}

		if err := tx.AppendTimelineEvent(ctx, s.timelineEvent(orgID, c.ID, "signal.attached",
			createdBy, map[string]string{"signal_id": signal.ID.String()})); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, createdBy.String(),
			"case.from_signal", "case", c.ID.String(),
			map[string]string{"signal_id": signal.ID.String()}))
	})
	if err != nil {
		return nil, err
	}

	s.publish(orgID, "case.created", created)

	return created, nil
}

// GetCase returns one case in the caller's org.
func (s *Server) GetCase(ctx context.Context, orgID, caseID uuid.UUID) (*models.Case, error) {
	return s.store.GetCase(ctx, orgID, caseID)
}

// ListCases returns the org's cases, newest first.
func (s *Server) ListCases(ctx context.Context, orgID uuid.UUID) ([]models.Case, error) {
	return s.store.ListCases(ctx, orgID)
}

// AttachSignal links an existing signal to an existing case. Attaching an
// already-attached signal is a no-op.
func (s *Server) AttachSignal(ctx context.Context, orgID, caseID, signalID, actorID uuid.UUID) error {
	if _, err := s.store.GetCase(ctx, orgID, caseID); err != nil {
		return err
	}

	if _, err := s.store.GetSignal(ctx, orgID, signalID); err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(tx db.Store) error {
		attached, err := tx.AttachCaseSignal(ctx, &models.CaseSignal{
			ID:         uuid.New(),
			OrgID:      orgID,
			CaseID:     caseID,
			SignalID:   signalID,
			AttachedBy: actorID,
			AttachedAt: s.now().UTC(),
		})
		if err != nil {
			return err
		}

		if !attached {
			return nil
		}

		if err := tx.AppendTimelineEvent(ctx, s.timelineEvent(orgID, caseID, "signal.attached",
			actorID, map[string]string{"signal_id": signalID.String()})); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, actorID.String(),
			"case.signal_attach", "case", caseID.String(),
			map[string]string{"signal_id": signalID.String()}))
	})
}

// DetachSignal removes a signal from a case.
func (s *Server) DetachSignal(ctx context.Context, orgID, caseID, signalID, actorID uuid.UUID) error {
	return s.store.WithTx(ctx, func(tx db.Store) error {
		if err := tx.DetachCaseSignal(ctx, orgID, caseID, signalID); err != nil {
			return err
		}

		if err := tx.AppendTimelineEvent(ctx, s.timelineEvent(orgID, caseID, "signal.detached",
			actorID, map[string]string{"signal_id": signalID.String()})); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, actorID.String(),
			"case.signal_detach", "case", caseID.String(),
			map[string]string{"signal_id": signalID.String()}))
	})
}

// CloseCase closes an open case with a reason.
func (s *Server) CloseCase(ctx context.Context, orgID, caseID, actorID uuid.UUID, reason string) error {
	err := s.store.WithTx(ctx, func(tx db.Store) error {
		if err := tx.CloseCase(ctx, orgID, caseID, actorID, reason, s.now().UTC()); err != nil {
			return err
		}

		if err := tx.AppendTimelineEvent(ctx, s.timelineEvent(orgID, caseID, "case.closed",
			actorID, map[string]string{"reason": reason})); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, actorID.String(),
			"case.close", "case", caseID.String(), nil))
	})
	if err != nil {
		return err
	}

	s.publish(orgID, "case.closed", map[string]string{"case_id": caseID.String()})

	return nil
}

// CaseObservables returns the observables attached to a case.
func (s *Server) CaseObservables(ctx context.Context, orgID, caseID uuid.UUID) ([]models.CaseObservable, error) {
	if _, err := s.store.GetCase(ctx, orgID, caseID); err != nil {
		return nil, err
	}

	return s.store.ListCaseObservables(ctx, orgID, caseID)
}

// Timeline returns a case's narrative log, oldest first.
func (s *Server) Timeline(ctx context.Context, orgID, caseID uuid.UUID) ([]models.CaseTimelineEvent, error) {
	if _, err := s.store.GetCase(ctx, orgID, caseID); err != nil {
		return nil, err
	}

	return s.store.ListTimeline(ctx, orgID, caseID)
}

// SetObservableDisposition records an analyst judgment on a case observable.
func (s *Server) SetObservableDisposition(ctx context.Context, orgID, caseID, observableID, actorID uuid.UUID, disposition models.ObservableDisposition, notes string) error {
	return s.store.WithTx(ctx, func(tx db.Store) error {
		if err := tx.SetCaseObservableDisposition(ctx, orgID, caseID, observableID, disposition, notes); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, actorID.String(),
			"case.observable_disposition", "case", caseID.String(),
			map[string]string{
				"observable_id": observableID.String(),
				"disposition":   string(disposition),
			}))
	})
}

func (s *Server) timelineEvent(orgID, caseID uuid.UUID, eventType string, actorID uuid.UUID, details map[string]string) *models.CaseTimelineEvent {
	event := &models.CaseTimelineEvent{
		ID:        uuid.New(),
		OrgID:     orgID,
		CaseID:    caseID,
		EventType: eventType,
		ActorType: models.ActorTypeUser,
		ActorID:   actorID.String(),
		CreatedAt: s.now().UTC(),
	}

	if len(details) > 0 {
		if raw, err := json.Marshal(details); err == nil {
			event.Details = raw
		}
	}

	return event
}
