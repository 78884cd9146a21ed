package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseQualityScore(t *testing.T) {
	cases := map[string]QualityScore{
		"High":           QualityHigh,
		"low":            QualityLow,
		"NEEDS_ANALYSIS": QualityNeedsAnalysis,
		"":               QualityNeedsAnalysis,
	}
	for in, want := range cases {
		got, err := ParseQualityScore(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseQualityScore("medium")
	assert.Error(t, err)
}

func TestValidTicker(t *testing.T) {
	for _, ok := range []string{"ITCI", "BRK.B", "RDS-A", "XBI"} {
		assert.True(t, ValidTicker(ok), ok)
	}
	for _, bad := range []string{"", "../etc", "..", "A..B", "a/b", `A\B`, ".X", "itci"} {
		assert.False(t, ValidTicker(bad), bad)
	}

	assert.NoError(t, Event{Ticker: "itci", EventDate: time.Now()}.Validate())
	assert.Error(t, Event{Ticker: "../etc", EventDate: time.Now()}.Validate())
}

func TestPositionFromSign(t *testing.T) {
	assert.Equal(t, PositionLong, PositionFromSign(0.2))
	assert.Equal(t, PositionShort, PositionFromSign(-0.01))
	assert.Equal(t, PositionFlat, PositionFromSign(0))
	assert.Equal(t, -1.0, PositionShort.Sign())
	assert.Equal(t, 0.0, PositionFlat.Sign())
}

func TestEventWindow(t *testing.T) {
	w := DefaultEventWindow
	require.NoError(t, w.Validate())
	assert.Equal(t, 7, w.Len())
	assert.Equal(t, 5, w.Lead())
	assert.Equal(t, "(-5,+1)", w.String())

	assert.Error(t, EventWindow{Start: 2, End: 1}.Validate())
}

func TestLogReturns(t *testing.T) {
	s := PriceSeries{Ticker: "ABC", Bars: []PriceBar{
		{Date: day("2024-01-03"), Close: 110},
		{Date: day("2024-01-02"), Close: 100},
		{Date: day("2024-01-04"), Close: 0},
		{Date: day("2024-01-05"), Close: 121},
		{Date: day("2024-01-08"), Close: 133.1},
	}}
	s.Sort()

	r, err := LogReturns(s)
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())
	assert.Equal(t, day("2024-01-03"), r.Dates[0])
	assert.InDelta(t, math.Log(1.1), r.Returns[0], 1e-12)
	assert.Equal(t, day("2024-01-08"), r.Dates[1])
	assert.InDelta(t, math.Log(1.1), r.Returns[1], 1e-12)
	assert.Equal(t, []time.Time{day("2024-01-02"), day("2024-01-05")}, r.Prev)
}

func TestPriceSeriesSortDropsDuplicates(t *testing.T) {
	s := PriceSeries{Bars: []PriceBar{
		{Date: day("2024-01-02"), Close: 1},
		{Date: day("2024-01-02"), Close: 2},
		{Date: day("2024-01-01"), Close: 3},
	}}
	s.Sort()
	require.Len(t, s.Bars, 2)
	assert.Equal(t, 2.0, s.Bars[1].Close)
}

func TestTrialPhaseLabel(t *testing.T) {
	tr := Trial{Phases: []string{"PHASE2", "PHASE3"}}
	assert.Equal(t, "PHASE2, PHASE3", tr.PhaseLabel())
	assert.True(t, tr.HasPhase("phase3"))
	assert.Equal(t, "N/A", Trial{}.PhaseLabel())
}
