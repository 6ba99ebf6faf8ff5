package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/carverauto/sentinelcase/pkg/identity"
)

// pathID parses the named path variable as a UUID.
func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	return id, err == nil
}

func (s *APIServer) ingestSignal(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	sourceID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid source id")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeBadRequest(w, "failed to read body")
		return
	}

	result, err := s.core.Ingest(r.Context(), id.OrgID, sourceID, body, r.Header.Get("Idempotency-Key"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if result.Deduped {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(result)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result)
}

func (s *APIServer) listSignals(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	signals, err := s.core.ListSignals(r.Context(), id.OrgID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, signals)
}

func (s *APIServer) getSignal(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	signalID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid signal id")
		return
	}

	signal, err := s.core.GetSignal(r.Context(), id.OrgID, signalID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, signal)
}

func (s *APIServer) holdSignal(w http.ResponseWriter, r *http.Request) {
	s.triageSignal(w, r, s.core.HoldSignal)
}

func (s *APIServer) dismissSignal(w http.ResponseWriter, r *http.Request) {
	s.triageSignal(w, r, s.core.DismissSignal)
}

func (s *APIServer) triageSignal(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, orgID, signalID, actorID uuid.UUID) error) {
	id := identity.MustFromContext(r.Context())

	signalID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid signal id")
		return
	}

	actorID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid actor id")
		return
	}

	if err := op(r.Context(), id.OrgID, signalID, actorID); err != nil {
		s.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type promoteSignalRequest struct {
	Title string `json:"title,omitempty"`
}

// promoteSignal opens a new case seeded with this signal.
func (s *APIServer) promoteSignal(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	signalID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid signal id")
		return
	}

	actorID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid actor id")
		return
	}

	var req promoteSignalRequest
	if r.ContentLength > 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			s.writeBadRequest(w, "invalid request body")
			return
		}
	}

	c, err := s.core.CreateCaseFromSignal(r.Context(), id.OrgID, actorID, signalID, req.Title)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(c)
}
