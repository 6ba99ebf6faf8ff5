package api

import (
	"net/http"
	"strconv"

	"github.com/carverauto/sentinelcase/pkg/identity"
)

// listAudit returns the org's recent audit trail, newest first.
func (s *APIServer) listAudit(w http.ResponseWriter, r *http.Request) {
	id := identity.MustFromContext(r.Context())

	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeBadRequest(w, "limit must be a non-negative integer")
			return
		}

		limit = parsed
	}

	entries, err := s.core.ListAudit(r.Context(), id.OrgID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.encodeJSONResponse(w, entries)
}
