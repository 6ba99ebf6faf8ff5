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

const caseColumns = `id, org_id, case_number, title, description, status, severity, confidence,
	created_by, created_at, closed_by, closed_at, close_reason`

func (db *DB) CountCases(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64

	err := db.q.QueryRow(ctx, `SELECT COUNT(*) FROM cases WHERE org_id = $1`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: count cases: %w", ErrFailedToQuery, err)
	}

	return count, nil
}

const insertCaseSQL = `
INSERT INTO cases (
	id, org_id, case_number, title, description, status, severity, confidence,
	created_by, created_at, closed_by, closed_at, close_reason
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
)`

func (db *DB) CreateCase(ctx context.Context, c *models.Case) error {
	_, err := db.q.Exec(ctx, insertCaseSQL,
		c.ID,
		c.OrgID,
		c.CaseNumber,
		c.Title,
		c.Description,
		c.Status,
		c.Severity,
		c.Confidence,
		c.CreatedBy,
		c.CreatedAt,
		c.ClosedBy,
		c.ClosedAt,
		c.CloseReason,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}

		return fmt.Errorf("%w: case: %w", ErrFailedToInsert, err)
	}

	return nil
}

func scanCase(row pgx.Row) (*models.Case, error) {
	var c models.Case

	err := row.Scan(
		&c.ID,
		&c.OrgID,
		&c.CaseNumber,
		&c.Title,
		&c.Description,
		&c.Status,
		&c.Severity,
		&c.Confidence,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.ClosedBy,
		&c.ClosedAt,
		&c.CloseReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}

		return nil, fmt.Errorf("%w: case: %w", ErrFailedToScan, err)
	}

	return &c, nil
}

func (db *DB) GetCase(ctx context.Context, orgID, caseID uuid.UUID) (*models.Case, error) {
	row := db.q.QueryRow(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE org_id = $1 AND id = $2`,
		orgID, caseID)

	return scanCase(row)
}

func (db *DB) ListCases(ctx context.Context, orgID uuid.UUID) ([]models.Case, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE org_id = $1 ORDER BY created_at DESC`,
		orgID)
	if err != nil {
		return nil, fmt.Errorf("%w: list cases: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.Case

	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *c)
	}

	return out, rows.Err()
}

func (db *DB) CloseCase(ctx context.Context, orgID, caseID, closedBy uuid.UUID, reason string, at time.Time) error {
	tag, err := db.q.Exec(ctx,
		`UPDATE cases
		 SET status = $3, closed_by = $4, closed_at = $5, close_reason = $6
		 WHERE org_id = $1 AND id = $2`,
		orgID, caseID, models.CaseStatusClosed, closedBy, at, reason)
	if err != nil {
		return fmt.Errorf("%w: close case: %w", ErrFailedToQuery, err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// AttachCaseSignal links a signal to a case. Returns false when the link
// already existed.
func (db *DB) AttachCaseSignal(ctx context.Context, cs *models.CaseSignal) (bool, error) {
	tag, err := db.q.Exec(ctx,
		`INSERT INTO case_signals (id, org_id, case_id, signal_id, attached_by, attached_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 ON CONFLICT (case_id, signal_id) DO NOTHING`,
		cs.ID, cs.OrgID, cs.CaseID, cs.SignalID, cs.AttachedBy, cs.AttachedAt)
	if err != nil {
		return false, fmt.Errorf("%w: case signal: %w", ErrFailedToInsert, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (db *DB) DetachCaseSignal(ctx context.Context, orgID, caseID, signalID uuid.UUID) error {
	tag, err := db.q.Exec(ctx,
		`DELETE FROM case_signals WHERE org_id = $1 AND case_id = $2 AND signal_id = $3`,
		orgID, caseID, signalID)
	if err != nil {
		return fmt.Errorf("%w: detach case signal: %w", ErrFailedToQuery, err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// AddCaseObservable marks an observable as of interest to a case. Returns
// false when it was already present.
func (db *DB) AddCaseObservable(ctx context.Context, co *models.CaseObservable) (bool, error) {
	tag, err := db.q.Exec(ctx,
		`INSERT INTO case_observables (id, org_id, case_id, observable_id, disposition, added_by, added_at, notes)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (case_id, observable_id) DO NOTHING`,
		co.ID, co.OrgID, co.CaseID, co.ObservableID, co.Disposition, co.AddedBy, co.AddedAt, co.Notes)
	if err != nil {
		return false, fmt.Errorf("%w: case observable: %w", ErrFailedToInsert, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (db *DB) ListCaseObservables(ctx context.Context, orgID, caseID uuid.UUID) ([]models.CaseObservable, error) {
	rows, err := db.q.Query(ctx,
		`SELECT id, org_id, case_id, observable_id, disposition, added_by, added_at, notes
		 FROM case_observables WHERE org_id = $1 AND case_id = $2`,
		orgID, caseID)
	if err != nil {
		return nil, fmt.Errorf("%w: list case observables: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.CaseObservable

	for rows.Next() {
		var co models.CaseObservable

		err := rows.Scan(&co.ID, &co.OrgID, &co.CaseID, &co.ObservableID,
			&co.Disposition, &co.AddedBy, &co.AddedAt, &co.Notes)
		if err != nil {
			return nil, fmt.Errorf("%w: case observable: %w", ErrFailedToScan, err)
		}

		out = append(out, co)
	}

	return out, rows.Err()
}

func (db *DB) SetCaseObservableDisposition(ctx context.Context, orgID, caseID, observableID uuid.UUID, disposition models.ObservableDisposition, notes string) error {
	tag, err := db.q.Exec(ctx,
		`UPDATE case_observables SET disposition = $4, notes = $5
		 WHERE org_id = $1 AND case_id = $2 AND observable_id = $3`,
		orgID, caseID, observableID, disposition, notes)
	if err != nil {
		return fmt.Errorf("%w: set disposition: %w", ErrFailedToQuery, err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (db *DB) AppendTimelineEvent(ctx context.Context, event *models.CaseTimelineEvent) error {
	details := event.Details
	if len(details) == 0 {
		details = []byte(`{}`)
	}

	_, err := db.q.Exec(ctx,
		`INSERT INTO case_timeline_events (id, org_id, case_id, event_type, actor_type, actor_id, created_at, details)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		event.ID, event.OrgID, event.CaseID, event.EventType,
		event.ActorType, event.ActorID, event.CreatedAt, details)
	if err != nil {
		return fmt.Errorf("%w: timeline event: %w", ErrFailedToInsert, err)
	}

	return nil
}

func (db *DB) ListTimeline(ctx context.Context, orgID, caseID uuid.UUID) ([]models.CaseTimelineEvent, error) {
	rows, err := db.q.Query(ctx,
		`SELECT id, org_id, case_id, event_type, actor_type, actor_id, created_at, details
		 FROM case_timeline_events
		 WHERE org_id = $1 AND case_id = $2 ORDER BY created_at ASC`,
		orgID, caseID)
	if err != nil {
		return nil, fmt.Errorf("%w: list timeline: %w", ErrFailedToQuery, err)
	}
	defer rows.Close()

	var out []models.CaseTimelineEvent

	for rows.Next() {
		var e models.CaseTimelineEvent

		err := rows.Scan(&e.ID, &e.OrgID, &e.CaseID, &e.EventType,
			&e.ActorType, &e.ActorID, &e.CreatedAt, &e.Details)
		if err != nil {
			return nil, fmt.Errorf("%w: timeline event: %w", ErrFailedToScan, err)
		}

		out = append(out, e)
	}

	return out, rows.Err()
}
