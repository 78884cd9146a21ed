package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Fixed-width so created_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists runs in a single-file database. Use ":memory:" for
// a throwaway store.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time; a single connection also keeps
	// ":memory:" databases alive between calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS study_runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			params TEXT NOT NULL,
			summary TEXT NOT NULL,
			result TEXT,
			backtest TEXT
		)
	`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_study_runs_created ON study_runs(created_at DESC)`)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, rec *RunRecord) error {
	if err := prepare(rec); err != nil {
		return err
	}
	e, err := encode(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO study_runs (id, created_at, name, params, summary, result, backtest)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			params = excluded.params,
			summary = excluded.summary,
			result = excluded.result,
			backtest = excluded.backtest
	`,
		rec.ID.String(), rec.CreatedAt.UTC().Format(sqliteTimeLayout), rec.Name,
		string(e.params), string(e.summary), string(e.result), string(e.backtest),
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, name, params, summary, result, backtest
		FROM study_runs WHERE id = ?
	`, id.String())

	var (
		rawID, created, name, params, summary string
		result, backtest                      sql.NullString
	)
	if err := row.Scan(&rawID, &created, &name, &params, &summary, &result, &backtest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	rec, err := sqliteRecord(rawID, created, name)
	if err != nil {
		return nil, err
	}
	if err := decode(rec, []byte(params), []byte(summary), []byte(result.String), []byte(backtest.String)); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, name, params, summary
		FROM study_runs
		ORDER BY created_at DESC, id
		LIMIT ?
	`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rawID, created, name, params, summary string
		if err := rows.Scan(&rawID, &created, &name, &params, &summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec, err := sqliteRecord(rawID, created, name)
		if err != nil {
			return nil, err
		}
		if err := decode(rec, []byte(params), []byte(summary), nil, nil); err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteRecord(rawID, created, name string) (*RunRecord, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}
	ts, err := time.Parse(sqliteTimeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &RunRecord{ID: id, CreatedAt: ts, Name: name}, nil
}
