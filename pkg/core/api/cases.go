package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/carverauto/sentinelcase/pkg/core"
	"github.com/carverauto/sentinelcase/pkg/identity"
	"github.com/carverauto/sentinelcase/pkg/models"
)

func (s *APIServer) createCase(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	actorID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid actor id")
		return
	}

	var input core.CaseInput
	if err := decodeJSONBody(r, &input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	if input.Title == "" {
		s.writeBadRequest(w, "title is required")
		return
	}

	c, err := s.core.CreateCase(r.Context(), id.OrgID, actorID, input)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(c)
}

func (s *APIServer) listCases(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	cases, err := s.core.ListCases(r.Context(), id.OrgID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, cases)
}

func (s *APIServer) getCase(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	caseID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid case id")
		return
	}

	c, err := s.core.GetCase(r.Context(), id.OrgID, caseID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, c)
}

type closeCaseRequest struct {
	Reason string `json:"reason"`
}

func (s *APIServer) closeCase(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	caseID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid case id")
		return
	}

	actorID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid actor id")
		return
	}

	var req closeCaseRequest
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			s.writeBadRequest(w, "invalid request body")
			return
		}
	}

	if err := s.core.CloseCase(r.Context(), id.OrgID, caseID, actorID, req.Reason); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) getTimeline(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	caseID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid case id")
		return
	}

	timeline, err := s.core.Timeline(r.Context(), id.OrgID, caseID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, timeline)
}

func (s *APIServer) getRelatedSignals(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	caseID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid case id")
		return
	}

	windowDays := 0

	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeBadRequest(w, "days must be a non-negative integer")
			return
		}

		windowDays = parsed
	}

	related, err := s.core.RelatedSignals(r.Context(), id.OrgID, caseID, windowDays)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, related)
}

func (s *APIServer) listCaseObservables(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	caseID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid case id")
		return
	}

	observables, err := s.core.CaseObservables(r.Context(), id.OrgID, caseID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, observables)
}

type dispositionRequest struct {
	Disposition string `json:"disposition"`
	Notes       string `json:"notes,omitempty"`
}

func (s *APIServer) setObservableDisposition(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	caseID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid case id")
		return
	}

	observableID, ok := pathID(r, "observable_id")
	if !ok {
		s.writeBadRequest(w, "invalid observable id")
		return
	}

	actorID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid actor id")
		return
	}

	var req dispositionRequest
	if err := decodeJSONBody(r, &req); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	disposition := models.ObservableDisposition(req.Disposition)

	switch disposition {
	case models.DispositionBenign, models.DispositionMalicious, models.DispositionUnknown:
	default:
		s.writeBadRequest(w, "disposition must be benign, malicious, or unknown")
		return
	}

	if err := s.core.SetObservableDisposition(r.Context(), id.OrgID, caseID, observableID, actorID,
		disposition, req.Notes); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) attachSignal(w http.ResponseWriter, r *http.Request) {
	s.linkSignal(w, r, s.core.AttachSignal)
}

func (s *APIServer) detachSignal(w http.ResponseWriter, r *http.Request) {
	s.linkSignal(w, r, s.core.DetachSignal)
}

func (s *APIServer) linkSignal(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, orgID, caseID, signalID, actorID uuid.UUID) error) {
	id := identity.MustFromContext(r.Context())

	caseID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid case id")
		return
	}

	signalID, ok := pathID(r, "signal_id")
	if !ok {
		s.writeBadRequest(w, "invalid signal id")
		return
	}

	actorID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid actor id")
		return
	}

	if err := op(r.Context(), id.OrgID, caseID, signalID, actorID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
