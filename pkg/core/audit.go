package core

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/carverauto/sentinelcase/pkg/models"
)

const defaultAuditLimit = 200

// auditEntry builds a provenance record for a mutating operation, stamped
// with the server clock so it shares the transaction's point in time. It is
// inserted inside the same transaction as the mutation.
func (s *Server) auditEntry(orgID uuid.UUID, actorType, actorID, action, targetType, targetID string, meta interface{}) *models.AuditLog {
	entry := &models.AuditLog{
		ID:         uuid.New(),
		OrgID:      orgID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Timestamp:  s.now().UTC(),
	}

	if meta != nil {
		if raw, err := json.Marshal(meta); err == nil {
			entry.Meta = raw
		}
	}

	return entry
}

// ListAudit returns the org's most recent audit entries, newest first. A
// non-positive or oversized limit falls back to the default page size.
func (s *Server) ListAudit(ctx context.Context, orgID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > defaultAuditLimit {
		limit = defaultAuditLimit
	}

	return s.store.ListAuditLogs(ctx, orgID, limit)
}
