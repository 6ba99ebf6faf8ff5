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

const sourceColumns = `id, org_id, name, description, ingest_api_key_hash, enabled,
	rate_limit_per_min, created_at, rotated_at`

func (db *DB) CreateSource(ctx context.Context, source *models.Source) error {
	_, err := db.q.Exec(ctx,
		`INSERT INTO sources (id, org_id, name, description, ingest_api_key_hash, enabled, rate_limit_per_min, created_at, rotated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		source.ID, source.OrgID, source.Name, source.Description,
		source.IngestAPIKeyHash, source.Enabled, source.RateLimitPerMin,
		source.CreatedAt, source.RotatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: source %q", models.ErrConflict, source.Name)
		}

		return fmt.Errorf("%w: source: %w", ErrFailedToInsert, err)
	}

	return nil
}

func scanSource(row pgx.Row) (*models.Source, error) {
	var s models.Source

	err := row.Scan(
		&s.ID,
		&s.OrgID,
		&s.Name,
		&s.Description,
		&s.IngestAPIKeyHash,
		&s.Enabled,
		&s.RateLimitPerMin,
		&s.CreatedAt,
		&s.RotatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}

		return nil, fmt.Errorf("%w: source: %w", ErrFailedToScan, err)
	}

	return &s, nil
}

func (db *DB) GetSource(ctx context.Context, orgID, sourceID uuid.UUID) (*models.Source, error) {
	row := db.q.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE org_id = $1 AND id = $2`,
		orgID, sourceID)

	return scanSource(row)
}

func (db *DB) GetSourceByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Source, error) {
	row := db.q.QueryRow(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE org_id = $1 AND name = $2`,
		orgID, name)

	return scanSource(row)
}

func (db *DB) ListSources(ctx context.Context, orgID uuid.UUID) ([]models.Source, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE org_id = $1 ORDER BY created_at DESC`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: list sources: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.Source

	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *s)
	}

	return out, rows.Err()
}

func (db *DB) UpdateSource(ctx context.Context, orgID, sourceID uuid.UUID, patch *models.SourcePatch) error {
	tag, err := db.q.Exec(ctx,
		`UPDATE sources SET
			description = COALESCE($3, description),
			enabled = COALESCE($4, enabled),
			rate_limit_per_min = COALESCE($5, rate_limit_per_min)
		 WHERE org_id = $1 AND id = $2`,
		orgID, sourceID, patch.Description, patch.Enabled, patch.RateLimitPerMin)
	if err != nil {
		return fmt.Errorf("%w: update source: %w", ErrFailedToQuery, err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (db *DB) UpdateSourceKey(ctx context.Context, orgID, sourceID uuid.UUID, keyHash string, rotatedAt time.Time) error {
	tag, err := db.q.Exec(ctx,
		`UPDATE sources SET ingest_api_key_hash = $3, rotated_at = $4
		 WHERE org_id = $1 AND id = $2`,
		orgID, sourceID, keyHash, rotatedAt)
	if err != nil {
		return fmt.Errorf("%w: rotate source key: %w", ErrFailedToQuery, err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
