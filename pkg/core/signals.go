package core

import (
	"context"

	"github.com/google/uuid"

	"github.com/carverauto/sentinelcase/pkg/db"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// GetSignal returns one signal in the caller's org.
func (s *Server) GetSignal(ctx context.Context, orgID, signalID uuid.UUID) (*models.Signal, error) {
	return s.store.GetSignal(ctx, orgID, signalID)
}

// ListSignals returns the org's signals, newest first.
func (s *Server) ListSignals(ctx context.Context, orgID uuid.UUID) ([]models.Signal, error) {
	return s.store.ListSignals(ctx, orgID)
}

// HoldSignal parks a signal for later review.
func (s *Server) HoldSignal(ctx context.Context, orgID, signalID, actorID uuid.UUID) error {
	return s.triageSignal(ctx, orgID, signalID, actorID, models.SignalStatusHeld, "held", "signal.hold")
}

// DismissSignal marks a signal as not worth investigation.
func (s *Server) DismissSignal(ctx context.Context, orgID, signalID, actorID uuid.UUID) error {
	return s.triageSignal(ctx, orgID, signalID, actorID, models.SignalStatusDismissed, "dismissed", "signal.dismiss")
}

func (s *Server) triageSignal(ctx context.Context, orgID, signalID, actorID uuid.UUID, status models.SignalStatus, disposition, action string) error {
	err := s.store.WithTx(ctx, func(tx db.Store) error {
		if err := tx.UpdateSignalTriage(ctx, orgID, signalID, status, disposition, actorID, s.now().UTC()); err != nil {
			return err
		}

		return tx.InsertAuditLog(ctx, s.auditEntry(orgID,
			models.ActorTypeUser, actorID.String(),
			action, "signal", signalID.String(), nil))
	})
	if err != nil {
		return err
	}

	s.publish(orgID, action, map[string]string{"signal_id": signalID.String()})

	return nil
}

// GetObservable returns one observable in the caller's org.
func (s *Server) GetObservable(ctx context.Context, orgID, observableID uuid.UUID) (*models.Observable, error) {
	return s.store.GetObservable(ctx, orgID, observableID)
}

// ListObservables returns the org's observables, most recently seen first.
func (s *Server) ListObservables(ctx context.Context, orgID uuid.UUID) ([]models.Observable, error) {
	return s.store.ListObservables(ctx, orgID)
}

// SignalsForObservable returns the signals an observable was sighted in.
func (s *Server) SignalsForObservable(ctx context.Context, orgID, observableID uuid.UUID) ([]models.Signal, error) {
	if _, err := s.store.GetObservable(ctx, orgID, observableID); err != nil {
		return nil, err
	}

	observations, err := s.store.ListObservationsByObservable(ctx, orgID, observableID)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(observations))
	out := make([]models.Signal, 0, len(observations))

	for _, obs := range observations {
		if _, ok := seen[obs.SignalID]; ok {
			continue
		}

		seen[obs.SignalID] = struct{}{}

		signal, err := s.store.GetSignal(ctx, orgID, obs.SignalID)
		if err != nil {
			return nil, err
		}

		out = append(out, *signal)
	}

	return out, nil
}
