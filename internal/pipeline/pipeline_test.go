package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"biotech-event-study/internal/data"
	"biotech-event-study/internal/model"
	"biotech-event-study/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	trials []model.Trial
	err    error
	got    data.SearchParams
}

func (f *fakeSource) SearchStudies(_ context.Context, params data.SearchParams) ([]model.Trial, error) {
	f.got = params
	return f.trials, f.err
}

func d(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func sponsors(t *testing.T) *data.SponsorMap {
	m, err := data.ReadSponsorMap(strings.NewReader("sponsor,ticker\nPfizer,PFE\nEli Lilly and Company,LLY\nAcademic Center,\n"))
	require.NoError(t, err)
	return m
}

func trials() []model.Trial {
	return []model.Trial{
		{NCTID: "N1", Sponsor: "Pfizer", Phases: []string{"PHASE3"}, CompletionDate: d("2025-04-01"),
			Allocation: "RANDOMIZED", Masking: "DOUBLE", EnrollmentCount: 500, SponsorClass: "INDUSTRY", PrimaryPurpose: "TREATMENT"},
		{NCTID: "N2", Sponsor: "Eli Lilly & Co", Phases: []string{"PHASE2"}, CompletionDate: d("2025-02-15")},
		{NCTID: "N3", Sponsor: "Academic Center", CompletionDate: d("2025-03-01")},
		{NCTID: "N4", Sponsor: "Tiny Bio", CompletionDate: d("2025-03-01")},
		{NCTID: "N5", Sponsor: "Pfizer", CompletionDate: d("2026-01-01")},
		{NCTID: "N6", Sponsor: "Pfizer"},
		{NCTID: "N7", Sponsor: "Tiny Bio", CompletionDate: d("2024-01-01")},
	}
}

func TestMapSponsors(t *testing.T) {
	p := New(nil, sponsors(t), nil)
	res, err := p.MapSponsors(trials())
	require.NoError(t, err)

	assert.Len(t, res.Matched, 4)
	assert.Equal(t, "LLY", res.Matched[1].Ticker)
	assert.Equal(t, []string{"Academic Center", "Tiny Bio"}, res.Unmatched)
}

func TestMapSponsorsWithoutMap(t *testing.T) {
	_, err := New(nil, nil, nil).MapSponsors(trials())
	assert.True(t, errors.Is(err, data.ErrSponsorMapNotFound))
}

func TestFilterUpcoming(t *testing.T) {
	p := New(nil, sponsors(t), nil)
	res, err := p.MapSponsors(trials())
	require.NoError(t, err)

	now := time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)
	up := FilterUpcoming(res.Matched, 90, now)
	require.Len(t, up, 2)
	assert.Equal(t, "N2", up[0].NCTID)
	assert.Equal(t, "N1", up[1].NCTID)
}

func TestRunUpcoming(t *testing.T) {
	src := &fakeSource{trials: trials()}
	p := New(src, sponsors(t), scoring.New(scoring.DefaultRules()))
	p.Now = func() time.Time { return d("2025-01-10") }

	res, err := p.Run(context.Background(), Options{
		Query:     data.SearchParams{Condition: "oncology", Phase: "PHASE3", MaxResults: 50},
		DaysAhead: 180,
	})
	require.NoError(t, err)
	assert.Equal(t, "oncology", src.got.Condition)
	assert.Len(t, res.Trials, 7)

	require.Len(t, res.Events, 2)
	assert.Equal(t, model.Event{
		Ticker:       "LLY",
		EventDate:    d("2025-02-15"),
		TrialID:      "N2",
		CatalystType: "PHASE2",
		QualityScore: model.QualityLow,
	}, res.Events[0])
	assert.Equal(t, model.QualityHigh, res.Events[1].QualityScore)
	assert.Equal(t, "PHASE3", res.Events[1].CatalystType)
}

func TestRunHistorical(t *testing.T) {
	p := New(&fakeSource{trials: trials()}, sponsors(t), nil)
	res, err := p.Run(context.Background(), Options{
		Historical: true,
		From:       d("2025-03-01"),
	})
	require.NoError(t, err)
	require.Len(t, res.Events, 2)
	assert.Equal(t, "N1", res.Events[0].TrialID)
	assert.Equal(t, "N5", res.Events[1].TrialID)
	assert.Equal(t, model.QualityNeedsAnalysis, res.Events[0].QualityScore)
}

func TestRunPropagatesFetchError(t *testing.T) {
	p := New(&fakeSource{err: errors.New("boom")}, sponsors(t), nil)
	_, err := p.Run(context.Background(), Options{})
	assert.ErrorContains(t, err, "fetch trials")
}
