package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/carverauto/sentinelcase/pkg/core"
	"github.com/carverauto/sentinelcase/pkg/identity"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// sourceWithKey is the one response that carries a raw ingest key.
type sourceWithKey struct {
	*models.Source

	IngestAPIKey string `json:"ingest_api_key"`
}

func (s *APIServer) createSource(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	actorID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid actor id")
		return
	}

	var input core.SourceInput
	if err := decodeJSONBody(r, &input); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	if input.Name == "" {
		s.writeBadRequest(w, "name is required")
		return
	}

	source, rawKey, err := s.core.CreateSource(r.Context(), id.OrgID, actorID, input)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(sourceWithKey{Source: source, IngestAPIKey: rawKey})
}

func (s *APIServer) listSources(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	sources, err := s.core.ListSources(r.Context(), id.OrgID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, sources)
}

func (s *APIServer) getSource(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	sourceID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid source id")
		return
	}

	source, err := s.core.GetSource(r.Context(), id.OrgID, sourceID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, source)
}

func (s *APIServer) updateSource(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	sourceID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid source id")
		return
	}

	actorID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid actor id")
		return
	}

	var patch models.SourcePatch
	if err := decodeJSONBody(r, &patch); err != nil {
		s.writeBadRequest(w, "invalid request body")
		return
	}

	if err := s.core.UpdateSource(r.Context(), id.OrgID, sourceID, actorID, patch); err != nil {
		s.writeError(w, err)
		return
	}

	source, err := s.core.GetSource(r.Context(), id.OrgID, sourceID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, source)
}

func (s *APIServer) rotateSourceKey(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	sourceID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid source id")
		return
	}

	actorID, err := uuid.Parse(id.ActorID)
	if err != nil {
		s.writeBadRequest(w, "invalid actor id")
		return
	}

	rawKey, err := s.core.RotateSourceKey(r.Context(), id.OrgID, sourceID, actorID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, map[string]string{"ingest_api_key": rawKey})
}
