package store

import (
	"context"
	"testing"
	"time"

	"biotech-event-study/internal/analysis"
	"biotech-event-study/internal/eventstudy"
	"biotech-event-study/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(name string, created time.Time) *RunRecord {
	res := &eventstudy.Result{
		Params: eventstudy.DefaultParams(),
		Events: []eventstudy.EventResult{{
			Ticker:       "ITCI",
			QualityScore: model.QualityHigh,
			EventDate:    time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			TradingDate:  time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			CAR:          0.12,
		}},
		Skipped: []eventstudy.SkippedEvent{{Reason: eventstudy.SkipMissingTicker}},
	}
	return &RunRecord{
		CreatedAt: created,
		Name:      name,
		Params:    res.Params,
		Summary:   analysis.Summarize(res.Events),
		Result:    res,
		Backtest:  &eventstudy.BacktestResult{Strategy: "quality", NTrades: 1, TotalAbnormal: 0.12},
	}
}

// runStoreContract exercises behaviour every backend must share.
func runStoreContract(t *testing.T, s RunStore) {
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	first := sampleRecord("first", base)
	require.NoError(t, s.Save(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	second := sampleRecord("second", base.Add(90*time.Millisecond))
	require.NoError(t, s.Save(ctx, second))
	third := sampleRecord("third", base.Add(time.Second))
	require.NoError(t, s.Save(ctx, third))

	got, err := s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
	assert.True(t, base.Equal(got.CreatedAt))
	assert.Equal(t, "XBI", got.Params.Benchmark)
	assert.Equal(t, 1, got.Summary.All.N)
	require.NotNil(t, got.Result)
	require.Len(t, got.Result.Events, 1)
	assert.Equal(t, "ITCI", got.Result.Events[0].Ticker)
	assert.Equal(t, eventstudy.SkipMissingTicker, got.Result.Skipped[0].Reason)
	require.NotNil(t, got.Backtest)
	assert.Equal(t, 0.12, got.Backtest.TotalAbnormal)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{list[0].Name, list[1].Name, list[2].Name})
	assert.Nil(t, list[0].Result)
	assert.Nil(t, list[0].Backtest)
	assert.Equal(t, 1, list[0].Summary.All.N)

	list, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// Saving again with the same id updates in place.
	first.Name = "renamed"
	require.NoError(t, s.Save(ctx, first))
	got, err = s.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	_, err = s.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)

	assert.Error(t, s.Save(ctx, nil))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreContract(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	defer s.Close()
	runStoreContract(t, s)
}

func TestSQLiteStorePersistsToFile(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/runs.db"

	s, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	rec := sampleRecord("persisted", time.Time{})
	require.NoError(t, s.Save(ctx, rec))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Name)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "memory", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, "mongo", "")
	assert.Error(t, err)
}
