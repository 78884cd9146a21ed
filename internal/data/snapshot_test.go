package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"biotech-event-study/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrialSnapshotRoundTripAndReplay(t *testing.T) {
	snap := &TrialSnapshot{
		FetchedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Query:     SearchParams{Condition: "oncology", Phase: "PHASE3"},
		Trials: []model.Trial{
			{NCTID: "NCT01", Sponsor: "Alpha", Status: "COMPLETED", Phases: []string{"PHASE3"}},
			{NCTID: "NCT02", Sponsor: "Beta", Status: "RECRUITING", Phases: []string{"PHASE2"}},
			{NCTID: "NCT03", Sponsor: "Gamma", Status: "COMPLETED", Phases: []string{"PHASE2", "PHASE3"}},
		},
	}
	path := filepath.Join(t.TempDir(), "snap", "trials.json")
	require.NoError(t, SaveTrialSnapshot(snap, path))

	loaded, err := LoadTrialSnapshot(path)
	require.NoError(t, err)
	assert.True(t, loaded.FetchedAt.Equal(snap.FetchedAt))
	require.Len(t, loaded.Trials, 3)

	got, err := loaded.SearchStudies(context.Background(), SearchParams{Phase: "phase3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "NCT01", got[0].NCTID)
	assert.Equal(t, "NCT03", got[1].NCTID)

	got, err = loaded.SearchStudies(context.Background(), SearchParams{Statuses: []string{"recruiting"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "NCT02", got[0].NCTID)

	got, err = loaded.SearchStudies(context.Background(), SearchParams{MaxResults: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestLoadTrialSnapshotMissing(t *testing.T) {
	_, err := LoadTrialSnapshot(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
