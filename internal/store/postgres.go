package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and creates the study_runs table if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.createTables(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS study_runs (
			id UUID PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			params JSONB NOT NULL,
			summary JSONB NOT NULL,
			result JSONB,
			backtest JSONB
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_study_runs_created ON study_runs(created_at DESC)`)
	return err
}

func (s *PostgresStore) Save(ctx context.Context, rec *RunRecord) error {
	if err := prepare(rec); err != nil {
		return err
	}
	e, err := encode(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO study_runs (id, created_at, name, params, summary, result, backtest)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			params = EXCLUDED.params,
			summary = EXCLUDED.summary,
			result = EXCLUDED.result,
			backtest = EXCLUDED.backtest
	`
	_, err = s.pool.Exec(ctx, query,
		rec.ID, rec.CreatedAt, rec.Name,
		e.params, e.summary, e.result, e.backtest,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `
		SELECT id, created_at, name, params, summary, result, backtest
		FROM study_runs WHERE id = $1
	`
	var (
		rec                               RunRecord
		params, summary, result, backtest []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(&rec.ID, &rec.CreatedAt, &rec.Name, &params, &summary, &result, &backtest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	if err := decode(&rec, params, summary, result, backtest); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, created_at, name, params, summary
		FROM study_runs
		ORDER BY created_at DESC, id
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec             RunRecord
			params, summary []byte
		)
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Name, &params, &summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := decode(&rec, params, summary, nil, nil); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
