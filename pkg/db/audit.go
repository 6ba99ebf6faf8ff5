package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carverauto/sentinelcase/pkg/models"
)

// InsertAuditLog appends one provenance record. Callers run it inside the
// same transaction as the mutation it describes.
func (db *DB) InsertAuditLog(ctx context.Context, entry *models.AuditLog) error {
	meta := entry.Meta
	if len(meta) == 0 {
		meta = []byte(`{}`)
	}

	_, err := db.q.Exec(ctx,
		`INSERT INTO audit_logs (id, org_id, actor_type, actor_id, action, target_type, target_id, timestamp, ip_address, user_agent, meta)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		entry.ID, entry.OrgID, entry.ActorType, entry.ActorID,
		entry.Action, entry.TargetType, entry.TargetID, entry.Timestamp,
		entry.IPAddress, entry.UserAgent, meta)
	if err != nil {
		return fmt.Errorf("%w: audit log: %w", ErrFailedToInsert, err)
	}

	return nil
}

const auditColumns = `id, org_id, actor_type, actor_id, action, target_type, target_id,
	timestamp, ip_address, user_agent, meta`

// ListAuditLogs returns the org's most recent audit entries, newest first.
func (db *DB) ListAuditLogs(ctx context.Context, orgID uuid.UUID, limit int) ([]models.AuditLog, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+auditColumns+` FROM audit_logs WHERE org_id = $1 ORDER BY timestamp DESC LIMIT $2`,
		orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list audit logs: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.AuditLog

	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *entry)
	}

	return out, rows.Err()
}

func scanAuditLog(rows pgx.Rows) (*models.AuditLog, error) {
	var entry models.AuditLog

	err := rows.Scan(
		&entry.ID,
		&entry.OrgID,
		&entry.ActorType,
		&entry.ActorID,
		&entry.Action,
		&entry.TargetType,
		&entry.TargetID,
		&entry.Timestamp,
		&entry.IPAddress,
		&entry.UserAgent,
		&entry.Meta,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: audit log: %w", ErrFailedToScan, err)
	}

	return &entry, nil
}
