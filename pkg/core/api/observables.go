package api

import (
	"net/http"

	"github.com/carverauto/sentinelcase/pkg/identity"
)

func (s *APIServer) listObservables(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	observables, err := s.core.ListObservables(r.Context(), id.OrgID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, observables)
}

func (s *APIServer) getObservable(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	observableID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid observable id")
		return
	}

	observable, err := s.core.GetObservable(r.Context(), id.OrgID, observableID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, observable)
}

func (s *APIServer) getObservableSignals(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	observableID, ok := pathID(r, "id")
	if !ok {
		s.writeBadRequest(w, "invalid observable id")
		return
	}

	signals, err := s.core.SignalsForObservable(r.Context(), id.OrgID, observableID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, signals)
}
