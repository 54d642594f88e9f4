package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/guardkit/guardkit/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Store persists guard runs to Postgres for later review. It is optional
// infrastructure: when no database is configured the guard runs without it.
type Store struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

func NewStore(ctx context.Context, databaseURL string, logger *zerolog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach audit database: %w", err)
	}

	return &Store{pool: pool, logger: logger}, nil
}

// Migrate creates the audit tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS guard_runs (
			request_id   TEXT PRIMARY KEY,
			input_text   TEXT NOT NULL,
			output_text  TEXT NOT NULL,
			outcome      TEXT NOT NULL,
			short_circuit BOOLEAN NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS validation_results (
			id             BIGSERIAL PRIMARY KEY,
			request_id     TEXT NOT NULL REFERENCES guard_runs(request_id),
			validator      TEXT NOT NULL,
			outcome        TEXT NOT NULL,
			reason         TEXT,
			execution_mode TEXT NOT NULL,
			model_version  TEXT,
			duration_ms    BIGINT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("failed to migrate audit schema: %w", err)
	}
	return nil
}

// RecordRun stores a guard run and its per-validator results in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, run models.GuardResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO guard_runs (request_id, input_text, output_text, outcome, short_circuit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (request_id) DO NOTHING`,
		run.RequestID, run.Text, run.OutputText, string(run.Outcome), run.ShortCircuit, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert guard run: %w", err)
	}

	for _, result := range run.Results {
		_, err = tx.Exec(ctx, `
			INSERT INTO validation_results (request_id, validator, outcome, reason, execution_mode, model_version, duration_ms)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			run.RequestID, result.Validator, string(result.Outcome), result.Reason,
			string(result.Mode), result.ModelVersion, result.Duration.Milliseconds())
		if err != nil {
			return fmt.Errorf("failed to insert validation result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}

	s.logger.Debug().Str("request_id", run.RequestID).Msg("guard run recorded")
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
