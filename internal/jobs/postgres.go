package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// PostgresStore persists jobs in PostgreSQL. Update runs inside a
// transaction with SELECT ... FOR UPDATE so concurrent polls and webhook
// pushes serialize per row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a job store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL for the jobs table. Applied by the operator; kept here
// so the store and its table never drift apart silently.
const Schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id              TEXT PRIMARY KEY,
    kind            TEXT NOT NULL,
    provider_ref    TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    progress        INT  NOT NULL DEFAULT 0,
    params_json     JSONB NOT NULL DEFAULT '{}'::jsonb,
    result_json     JSONB,
    error_message   TEXT NOT NULL DEFAULT '',
    simulated       BOOLEAN NOT NULL DEFAULT FALSE,
    fallback_reason TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Create inserts a new job record.
func (s *PostgresStore) Create(ctx context.Context, job *domain.Job) error {
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	params, err := json.Marshal(orEmpty(job.Params))
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	var result []byte
	if job.Result != nil {
		if result, err = json.Marshal(job.Result); err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
	}

	query := `
INSERT INTO jobs (id, kind, provider_ref, status, progress, params_json, result_json, error_message, simulated, fallback_reason, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
`
	_, err = s.pool.Exec(ctx, query,
		job.ID,
		job.Kind,
		job.ProviderRef,
		job.Status,
		job.Progress,
		params,
		result,
		job.Error,
		job.Simulated,
		job.FallbackReason,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (s *PostgresStore) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := s.pool.QueryRow(ctx, selectJobQuery+` WHERE id = $1;`, jobID)
	return scanJob(row)
}

// Update loads the row for update, applies mutate and writes the result back
// in the same transaction.
func (s *PostgresStore) Update(ctx context.Context, jobID string, mutate func(*domain.Job) error) (*domain.Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, selectJobQuery+` WHERE id = $1 FOR UPDATE;`, jobID)
	job, err := scanJob(row)
	if err != nil {
		return nil, err
	}

	if err := mutate(job); err != nil {
		return nil, err
	}
	job.UpdatedAt = time.Now().UTC()

	var result []byte
	if job.Result != nil {
		if result, err = json.Marshal(job.Result); err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
	}

	query := `
UPDATE jobs
SET provider_ref = $2,
    status = $3,
    progress = $4,
    result_json = $5,
    error_message = $6,
    simulated = $7,
    fallback_reason = $8,
    updated_at = $9
WHERE id = $1;
`
	if _, err := tx.Exec(ctx, query,
		job.ID,
		job.ProviderRef,
		job.Status,
		job.Progress,
		result,
		job.Error,
		job.Simulated,
		job.FallbackReason,
		job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return job, nil
}

const selectJobQuery = `
SELECT id, kind, provider_ref, status, progress, params_json, result_json, error_message, simulated, fallback_reason, created_at, updated_at
FROM jobs`

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var params, result []byte
	if err := row.Scan(
		&job.ID,
		&job.Kind,
		&job.ProviderRef,
		&job.Status,
		&job.Progress,
		&params,
		&result,
		&job.Error,
		&job.Simulated,
		&job.FallbackReason,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &job.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
	}
	if len(result) > 0 {
		if err := json.Unmarshal(result, &job.Result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
	}
	return &job, nil
}

func orEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

var _ domain.JobStore = (*PostgresStore)(nil)
