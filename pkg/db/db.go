/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package db implements the org-scoped transactional store on Postgres via
// pgx. Every query takes the caller's org id as a mandatory parameter;
// cross-org rows are invisible, surfacing as models.ErrNotFound.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/sentinelcase/pkg/logger"
	"github.com/carverauto/sentinelcase/pkg/models"
)

// Store is the org-scoped query surface. Inside WithTx the same methods run
// against the transaction instead of the pool.
type Store interface {
	// Signals.
	CreateSignal(ctx context.Context, signal *models.Signal) error
	GetSignal(ctx context.Context, orgID, signalID uuid.UUID) (*models.Signal, error)
	GetSignalByDedupeKey(ctx context.Context, orgID uuid.UUID, dedupeKey string) (*models.Signal, error)
	ListSignals(ctx context.Context, orgID uuid.UUID) ([]models.Signal, error)
	UpdateSignalTriage(ctx context.Context, orgID, signalID uuid.UUID, status models.SignalStatus, disposition string, actorID uuid.UUID, at time.Time) error
	SetSignalStatus(ctx context.Context, orgID, signalID uuid.UUID, status models.SignalStatus) error

	// Observables and observations.
	UpsertObservable(ctx context.Context, orgID uuid.UUID, obsType models.ObservableType, value string, seenAt time.Time) (*models.Observable, error)
	GetObservable(ctx context.Context, orgID, observableID uuid.UUID) (*models.Observable, error)
	GetObservablesByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.Observable, error)
	ListObservables(ctx context.Context, orgID uuid.UUID) ([]models.Observable, error)
	CreateObservation(ctx context.Context, obs *models.Observation) error
	ListObservationsBySignal(ctx context.Context, orgID, signalID uuid.UUID) ([]models.Observation, error)
	ListObservationsByObservable(ctx context.Context, orgID, observableID uuid.UUID) ([]models.Observation, error)
	ListObservationsSince(ctx context.Context, orgID uuid.UUID, observableIDs []uuid.UUID, cutoff time.Time) ([]models.Observation, error)

	// Cases.
	CountCases(ctx context.Context, orgID uuid.UUID) (int64, error)
	CreateCase(ctx context.Context, c *models.Case) error
	GetCase(ctx context.Context, orgID, caseID uuid.UUID) (*models.Case, error)
	ListCases(ctx context.Context, orgID uuid.UUID) ([]models.Case, error)
	CloseCase(ctx context.Context, orgID, caseID, closedBy uuid.UUID, reason string, at time.Time) error
	AttachCaseSignal(ctx context.Context, cs *models.CaseSignal) (bool, error)
	DetachCaseSignal(ctx context.Context, orgID, caseID, signalID uuid.UUID) error
	AddCaseObservable(ctx context.Context, co *models.CaseObservable) (bool, error)
	ListCaseObservables(ctx context.Context, orgID, caseID uuid.UUID) ([]models.CaseObservable, error)
	SetCaseObservableDisposition(ctx context.Context, orgID, caseID, observableID uuid.UUID, disposition models.ObservableDisposition, notes string) error
	AppendTimelineEvent(ctx context.Context, event *models.CaseTimelineEvent) error
	ListTimeline(ctx context.Context, orgID, caseID uuid.UUID) ([]models.CaseTimelineEvent, error)

	// Sources.
	CreateSource(ctx context.Context, source *models.Source) error
	GetSource(ctx context.Context, orgID, sourceID uuid.UUID) (*models.Source, error)
	GetSourceByName(ctx context.Context, orgID uuid.UUID, name string) (*models.Source, error)
	ListSources(ctx context.Context, orgID uuid.UUID) ([]models.Source, error)
	UpdateSource(ctx context.Context, orgID, sourceID uuid.UUID, patch *models.SourcePatch) error
	UpdateSourceKey(ctx context.Context, orgID, sourceID uuid.UUID, keyHash string, rotatedAt time.Time) error

	// Audit.
	InsertAuditLog(ctx context.Context, entry *models.AuditLog) error
	ListAuditLogs(ctx context.Context, orgID uuid.UUID, limit int) ([]models.AuditLog, error)
}

// Service is the full store handle owned by the service layer.
type Service interface {
	Store

	// WithTx runs fn against a single transaction; fn returning an error
	// rolls everything back.
	WithTx(ctx context.Context, fn func(Store) error) error

	Close()
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DB is the pgx-backed Store/Service implementation.
type DB struct {
	pool   *pgxpool.Pool
	q      querier
	logger logger.Logger
}

// New wraps an existing pool as a Service.
func New(pool *pgxpool.Pool, log logger.Logger) *DB {
	return &DB{pool: pool, q: pool, logger: log}
}

// WithTx runs fn within one transaction. Constraint violations inside fn are
// returned as-is so callers can classify them with IsUniqueViolation.
func (db *DB) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrDatabaseError, err)
	}

	txStore := &DB{pool: db.pool, q: tx, logger: db.logger}

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			db.logger.Warn().Err(rbErr).Msg("tx rollback failed")
		}

		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit tx: %w", ErrDatabaseError, err)
	}

	return nil
}

// Close releases the underlying pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
