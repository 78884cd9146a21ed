package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"biotech-event-study/internal/data"
	"biotech-event-study/internal/eventstudy"
	"biotech-event-study/internal/model"
	"biotech-event-study/internal/study"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// writePrices dumps every synthetic series as <dir>/<TICKER>.csv.
func writePrices(t *testing.T, dir string, m *data.SyntheticMarket) {
	t.Helper()
	tickers := []string{m.Benchmark}
	for ticker := range m.Tickers {
		tickers = append(tickers, ticker)
	}
	for _, ticker := range tickers {
		s, err := m.Fetch(context.Background(), ticker, time.Time{}, time.Time{})
		require.NoError(t, err)
		var b strings.Builder
		b.WriteString("Date,Close\n")
		for _, bar := range s.Bars {
			fmt.Fprintf(&b, "%s,%.8f\n", bar.Date.Format("2006-01-02"), bar.Close)
		}
		writeFile(t, filepath.Join(dir, ticker+".csv"), b.String())
	}
}

func TestDemoMarketSeparatesGroups(t *testing.T) {
	m, events := demoMarket(demoOptions{perGroup: 5, highShock: 0.08, lowShock: -0.05, noise: 0.005, seed: 11})
	require.Len(t, events, 10)

	out, err := study.NewRunner(m).Run(context.Background(), study.Request{
		Events:   events,
		Params:   eventstudy.DefaultParams(),
		Strategy: "quality",
	})
	require.NoError(t, err)
	require.Len(t, out.Result.Events, 10)

	means := map[string]float64{}
	for _, g := range out.Summary.Groups {
		means[g.Group] = g.MeanCAR
	}
	assert.InDelta(t, 0.08, means["HIGH"], 0.03)
	assert.InDelta(t, -0.05, means["LOW"], 0.03)
	require.NotNil(t, out.Summary.HighVsLow)
	assert.Less(t, out.Summary.HighVsLow.PValue, 0.01)
}

func TestDemoCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "demo", "--events-per-group", "3", "--out", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Studied 6 events, skipped 0")
	assert.Contains(t, out, "HIGH vs LOW")
	assert.Contains(t, out, "caar")
	assert.FileExists(t, filepath.Join(dir, "results.csv"))

	_, err = execute(t, "demo", "--events-per-group", "0")
	assert.Error(t, err)
}

func TestStudyThenRankSavedRun(t *testing.T) {
	dir := t.TempDir()
	m, events := demoMarket(demoOptions{perGroup: 3, highShock: 0.1, lowShock: -0.1, noise: 0.005, seed: 3})
	writePrices(t, filepath.Join(dir, "prices"), m)
	events = append(events, model.Event{Ticker: "NOPE", EventDate: events[0].EventDate, QualityScore: model.QualityHigh})
	require.NoError(t, data.WriteEventsCSV(filepath.Join(dir, "events.csv"), events))

	cfg := writeFile(t, filepath.Join(dir, "study.yaml"), fmt.Sprintf(`
study:
  benchmark: XBI
  estimation_window: 60
  event_window: {start: -5, end: 1}
data:
  events_file: %[1]s/events.csv
  provider: csv
  prices_dir: %[1]s/prices
strategy:
  name: quality
output:
  dir: %[1]s/out
`, dir))
	dsn := filepath.Join(dir, "runs.db")

	out, err := execute(t, "study", "--config", cfg, "--name", "cli-test", "--store-driver", "sqlite", "--store-dsn", dsn)
	require.NoError(t, err)
	assert.Contains(t, out, "Studied 6 events, skipped 1")
	assert.Contains(t, out, "missing_ticker")
	for _, f := range []string{"results.csv", "abnormal_returns.csv", "trades.csv"} {
		assert.FileExists(t, filepath.Join(dir, "out", f))
	}

	match := regexp.MustCompile(`Saved run ([0-9a-f-]{36})`).FindStringSubmatch(out)
	require.Len(t, match, 2, out)

	out, err = execute(t, "rank", "--run", match[1], "--store-driver", "sqlite", "--store-dsn", dsn, "--limit", "4")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], "1"))
	assert.Contains(t, lines[1], "HI")

	out, err = execute(t, "rank", "--config", cfg)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 7)
}

func TestStudyAndRankArgumentErrors(t *testing.T) {
	_, err := execute(t, "study")
	assert.Error(t, err)

	_, err = execute(t, "rank")
	assert.EqualError(t, err, "either --config or --run is required")

	_, err = execute(t, "rank", "--run", "not-a-uuid")
	assert.ErrorContains(t, err, "invalid run id")
}

func snapshotFixture(t *testing.T, dir string) (snapPath, mapPath string) {
	t.Helper()
	snap := &data.TrialSnapshot{
		FetchedAt: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Trials: []model.Trial{
			{
				NCTID: "NCT100", Sponsor: "Alpha Therapeutics, Inc.", SponsorClass: "INDUSTRY",
				Phases: []string{"PHASE3"}, Allocation: "RANDOMIZED", Masking: "DOUBLE",
				EnrollmentCount: 600, PrimaryPurpose: "TREATMENT",
				CompletionDate: time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
			},
			{
				NCTID: "NCT200", Sponsor: "Beta Bio", SponsorClass: "INDUSTRY",
				Phases: []string{"PHASE2"}, Allocation: "RANDOMIZED", Masking: "NONE",
				EnrollmentCount: 100, PrimaryPurpose: "TREATMENT",
				CompletionDate: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
			},
			{
				NCTID: "NCT300", Sponsor: "Private Co", Phases: []string{"PHASE3"},
				CompletionDate: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}
	snapPath = filepath.Join(dir, "trials.json")
	require.NoError(t, data.SaveTrialSnapshot(snap, snapPath))
	mapPath = writeFile(t, filepath.Join(dir, "sponsors.csv"), "sponsor,ticker\nAlpha Therapeutics Inc,ALPH\nBeta Bio,beta\n")
	return snapPath, mapPath
}

func TestTrialsOffline(t *testing.T) {
	dir := t.TempDir()
	snapPath, mapPath := snapshotFixture(t, dir)
	cfg := writeFile(t, filepath.Join(dir, "study.yaml"), fmt.Sprintf("output:\n  dir: %s/out\n", dir))
	eventsPath := filepath.Join(dir, "events.csv")

	out, err := execute(t, "trials", "--config", cfg, "--offline", "--snapshot", snapPath,
		"--sponsor-map", mapPath, "--historical", "--from", "2023-01-01", "--to", "2023-12-31", "--out", eventsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Fetched 3 trials, 2 mapped to tickers, 2 selected")

	events, err := data.ReadEventsCSV(eventsPath)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ALPH", events[0].Ticker)
	assert.Equal(t, model.QualityHigh, events[0].QualityScore)
	assert.Equal(t, "NCT100", events[0].TrialID)
	assert.Equal(t, "BETA", events[1].Ticker)
	assert.Equal(t, model.QualityLow, events[1].QualityScore)

	unmatched, err := data.LoadSponsorMap(filepath.Join(dir, "out", "unmatched_sponsors.csv"))
	require.NoError(t, err)
	assert.True(t, unmatched.Known("Private Co"))
	assert.Equal(t, 1, unmatched.Len())
}

func TestTrialsRequiresConditionOnline(t *testing.T) {
	_, err := execute(t, "trials")
	assert.ErrorContains(t, err, "--condition")

	_, err = execute(t, "trials", "--offline")
	assert.ErrorContains(t, err, "--snapshot")
}

func TestUpdateSponsors(t *testing.T) {
	dir := t.TempDir()
	snapPath, mapPath := snapshotFixture(t, dir)
	writeFile(t, mapPath, "sponsor,ticker\nAlpha Therapeutics Inc,ALPH\n")

	out, err := execute(t, "update-sponsors", "--snapshot", snapPath, "--sponsor-map", mapPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "+ Beta Bio")
	assert.Contains(t, out, "+ Private Co")
	m, err := data.LoadSponsorMap(mapPath)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	out, err = execute(t, "update-sponsors", "--snapshot", snapPath, "--sponsor-map", mapPath)
	require.NoError(t, err)
	assert.Contains(t, out, "2 new")

	m, err = data.LoadSponsorMap(mapPath)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
	assert.True(t, m.Known("Beta Bio"))
	_, ok := m.Lookup("Beta Bio")
	assert.False(t, ok)
	ticker, ok := m.Lookup("Alpha Therapeutics, Inc.")
	assert.True(t, ok)
	assert.Equal(t, "ALPH", ticker)
}

func TestUpdateSponsorsStartsNewMap(t *testing.T) {
	dir := t.TempDir()
	snapPath, _ := snapshotFixture(t, dir)
	mapPath := filepath.Join(dir, "fresh", "map.csv")

	_, err := execute(t, "update-sponsors", "--snapshot", snapPath, "--sponsor-map", mapPath)
	require.NoError(t, err)
	m, err := data.LoadSponsorMap(mapPath)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())
}
