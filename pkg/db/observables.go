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

const observableColumns = `id, org_id, type, value_normalized, first_seen_at, last_seen_at, created_at`

// upsertObservableSQL inserts-or-returns the observable for a natural key.
// GREATEST keeps last_seen monotonic when a delayed writer lands after a
// fresher sighting.
const upsertObservableSQL = `
INSERT INTO observables (id, org_id, type, value_normalized, first_seen_at, last_seen_at, created_at)
VALUES ($1, $2, $3, $4, $5, $5, $5)
ON CONFLICT (org_id, type, value_normalized) DO UPDATE SET
	last_seen_at = GREATEST(observables.last_seen_at, EXCLUDED.last_seen_at)
RETURNING ` + observableColumns

func (db *DB) UpsertObservable(ctx context.Context, orgID uuid.UUID, obsType models.ObservableType, value string, seenAt time.Time) (*models.Observable, error) {
	row := db.q.QueryRow(ctx, upsertObservableSQL, uuid.New(), orgID, obsType, value, seenAt)

	return scanObservable(row)
}

func scanObservable(row pgx.Row) (*models.Observable, error) {
	var o models.Observable

	err := row.Scan(
		&o.ID,
		&o.OrgID,
		&o.Type,
		&o.ValueNormalized,
		&o.FirstSeenAt,
		&o.LastSeenAt,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}

		return nil, fmt.Errorf("%w: observable: %w", ErrFailedToScan, err)
	}

	return &o, nil
}

func (db *DB) GetObservable(ctx context.Context, orgID, observableID uuid.UUID) (*models.Observable, error) {
	row := db.q.QueryRow(ctx,
		`SELECT `+observableColumns+` FROM observables WHERE org_id = $1 AND id = $2`,
		orgID, observableID)

	return scanObservable(row)
}

func (db *DB) GetObservablesByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.Observable, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := db.q.Query(ctx,
		`SELECT `+observableColumns+` FROM observables WHERE org_id = $1 AND id = ANY($2)`,
		orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: observables by ids: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	return collectObservables(rows)
}

func (db *DB) ListObservables(ctx context.Context, orgID uuid.UUID) ([]models.Observable, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+observableColumns+` FROM observables WHERE org_id = $1 ORDER BY last_seen_at DESC`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: list observables: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	return collectObservables(rows)
}

func collectObservables(rows pgx.Rows) ([]models.Observable, error) {
	var out []models.Observable

	for rows.Next() {
		o, err := scanObservable(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *o)
	}

	return out, rows.Err()
}

const insertObservationSQL = `
INSERT INTO observations (id, org_id, signal_id, observable_id, role, seen_at, context)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (signal_id, observable_id, role) DO NOTHING`

// CreateObservation links a signal to an observable. Re-inserting the same
// (signal, observable, role) is a no-op, which keeps a retried ingest from
// double-writing links.
func (db *DB) CreateObservation(ctx context.Context, obs *models.Observation) error {
	obsContext := obs.Context
	if len(obsContext) == 0 {
		obsContext = []byte(`{}`)
	}

	_, err := db.q.Exec(ctx, insertObservationSQL,
		obs.ID,
		obs.OrgID,
		obs.SignalID,
		obs.ObservableID,
		obs.Role,
		obs.SeenAt,
		obsContext,
	)
	if err != nil {
		return fmt.Errorf("%w: observation: %w", ErrFailedToInsert, err)
	}

	return nil
}

const observationColumns = `id, org_id, signal_id, observable_id, role, seen_at, context`

func scanObservation(rows pgx.Rows) (*models.Observation, error) {
	var o models.Observation

	err := rows.Scan(
		&o.ID,
		&o.OrgID,
		&o.SignalID,
		&o.ObservableID,
		&o.Role,
		&o.SeenAt,
		&o.Context,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: observation: %w", ErrFailedToScan, err)
	}

	return &o, nil
}

func (db *DB) ListObservationsBySignal(ctx context.Context, orgID, signalID uuid.UUID) ([]models.Observation, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+observationColumns+` FROM observations WHERE org_id = $1 AND signal_id = $2`,
		orgID, signalID)
	if err != nil {
		return nil, fmt.Errorf("%w: observations by signal: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

func (db *DB) ListObservationsByObservable(ctx context.Context, orgID, observableID uuid.UUID) ([]models.Observation, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+observationColumns+` FROM observations WHERE org_id = $1 AND observable_id = $2`,
		orgID, observableID)
	if err != nil {
		return nil, fmt.Errorf("%w: observations by observable: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

// ListObservationsSince feeds the relatedness scorer: all org observations of
// the given observables at or after the cutoff.
func (db *DB) ListObservationsSince(ctx context.Context, orgID uuid.UUID, observableIDs []uuid.UUID, cutoff time.Time) ([]models.Observation, error) {
	if len(observableIDs) == 0 {
		return nil, nil
	}

	rows, err := db.q.Query(ctx,
		`SELECT `+observationColumns+` FROM observations
		 WHERE org_id = $1 AND observable_id = ANY($2) AND seen_at >= $3`,
		orgID, observableIDs, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: observations since: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	return collectObservations(rows)
}

func collectObservations(rows pgx.Rows) ([]models.Observation, error) {
	var out []models.Observation

	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *o)
	}

	return out, rows.Err()
}
