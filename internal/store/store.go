// Package store persists event-study runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biotech-event-study/internal/analysis"
	"biotech-event-study/internal/eventstudy"

	"github.com/google/uuid"
)

var ErrRunNotFound = errors.New("run not found")

// RunRecord is one persisted study. Result and Backtest are omitted by List.
type RunRecord struct {
	ID        uuid.UUID         `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Name      string            `json:"name,omitempty"`
	Params    eventstudy.Params `json:"params"`
	Summary   analysis.Summary  `json:"summary"`

	Result   *eventstudy.Result         `json:"result,omitempty"`
	Backtest *eventstudy.BacktestResult `json:"backtest,omitempty"`
}

// RunStore saves and retrieves runs. List returns newest first.
type RunStore interface {
	Save(ctx context.Context, rec *RunRecord) error
	Get(ctx context.Context, id uuid.UUID) (*RunRecord, error)
	List(ctx context.Context, limit int) ([]RunRecord, error)
	Close() error
}

// Open constructs a RunStore for driver memory, sqlite or postgres.
func Open(ctx context.Context, driver, dsn string) (RunStore, error) {
	switch driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(ctx, dsn)
	case "postgres":
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// prepare assigns an id and creation time when missing.
func prepare(rec *RunRecord) error {
	if rec == nil {
		return errors.New("run record is nil")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return nil
}

const defaultListLimit = 50

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
