package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/carverauto/sentinelcase/pkg/models"
)

const signalColumns = `id, org_id, source_id, received_at, event_time, title, raw_payload,
	payload_sha256, dedupe_key, status, triage_disposition, triaged_by, triaged_at`

const insertSignalSQL = `
INSERT INTO signals (
	id, org_id, source_id, received_at, event_time, title, raw_payload,
	payload_sha256, dedupe_key, status, triage_disposition, triaged_by, triaged_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)`

func (db *DB) CreateSignal(ctx context.Context, signal *models.Signal) error {
	_, err := db.q.Exec(ctx, insertSignalSQL,
		signal.ID,
		signal.OrgID,
		signal.SourceID,
		signal.ReceivedAt,
		signal.EventTime,
		signal.Title,
		signal.RawPayload,
		signal.PayloadSHA256,
		signal.DedupeKey,
		signal.Status,
		signal.TriageDisposition,
		signal.TriagedBy,
		signal.TriagedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}

		return fmt.Errorf("%w: signal: %w", ErrFailedToInsert, err)
	}

	return nil
}

func scanSignal(row pgx.Row) (*models.Signal, error) {
	var s models.Signal

	err := row.Scan(
		&s.ID,
		&s.OrgID,
		&s.SourceID,
		&s.ReceivedAt,
		&s.EventTime,
		&s.Title,
		&s.RawPayload,
		&s.PayloadSHA256,
		&s.DedupeKey,
		&s.Status,
		&s.TriageDisposition,
		&s.TriagedBy,
		&s.TriagedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}

		return nil, fmt.Errorf("%w: signal: %w", ErrFailedToScan, err)
	}

	return &s, nil
}

func (db *DB) GetSignal(ctx context.Context, orgID, signalID uuid.UUID) (*models.Signal, error) {
	row := db.q.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE org_id = $1 AND id = $2`,
		orgID, signalID)

	return scanSignal(row)
}

func (db *DB) GetSignalByDedupeKey(ctx context.Context, orgID uuid.UUID, dedupeKey string) (*models.Signal, error) {
	row := db.q.QueryRow(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE org_id = $1 AND dedupe_key = $2`,
		orgID, dedupeKey)

	return scanSignal(row)
}

func (db *DB) ListSignals(ctx context.Context, orgID uuid.UUID) ([]models.Signal, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+signalColumns+` FROM signals WHERE org_id = $1 ORDER BY received_at DESC`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: list signals: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.Signal

	for rows.Next() {
		s, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *s)
	}

	return out, rows.Err()
}

func (db *DB) UpdateSignalTriage(ctx context.Context, orgID, signalID uuid.UUID, status models.SignalStatus, disposition string, actorID uuid.UUID, at time.Time) error {
	tag, err := db.q.Exec(ctx,
		`UPDATE signals
		 SET status = $3, triage_disposition = $4, triaged_by = $5, triaged_at = $6
		 WHERE org_id = $1 AND id = $2`,
		orgID, signalID, status, disposition, actorID, at)
	if err != nil {
		return fmt.Errorf("%w: triage signal: %w", ErrFailedToQuery, err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (db *DB) SetSignalStatus(ctx context.Context, orgID, signalID uuid.UUID, status models.SignalStatus) error {
	tag, err := db.q.Exec(ctx,
		`UPDATE signals SET status = $3 WHERE org_id = $1 AND id = $2`,
		orgID, signalID, status)
	if err != nil {
		return fmt.Errorf("%w: set signal status: %w", ErrFailedToQuery, err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
