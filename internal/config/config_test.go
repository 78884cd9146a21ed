package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"biotech-event-study/internal/eventstudy"
	"biotech-event-study/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "study.yaml", `
study:
  benchmark: ibb
data:
  events_file: my_events.csv
strategy:
  name: oracle
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ibb", c.Study.Benchmark)
	assert.Equal(t, 60, c.Study.EstimationWindow)
	assert.Equal(t, -5, c.Study.EventWindow.Start)
	assert.Equal(t, 1, c.Study.EventWindow.End)
	assert.Equal(t, "my_events.csv", c.Data.EventsFile)
	assert.Equal(t, "csv", c.Data.Provider)
	assert.Equal(t, "oracle", c.Strategy.Name)

	p := c.Study.ToParams()
	assert.Equal(t, eventstudy.DatePolicyExact, p.DatePolicy)
	e, err := eventstudy.New(p)
	require.NoError(t, err)
	assert.Equal(t, "IBB", e.Params.Benchmark)
}

func TestLoadMergesScoringFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scoring.yaml", `
scoring:
  min_enrollment: 500
  threshold: 3
  weights:
    phase3: 3
    randomized: 1
`)
	path := writeFile(t, dir, "study.yaml", `
scoring_file: scoring.yaml
scoring:
  threshold: 2.5
strategy:
  name: quality
  params:
    low: FLAT
`)
	c, err := Load(path)
	require.NoError(t, err)

	rules := c.ScoringRules()
	assert.True(t, rules.Enabled)
	assert.Equal(t, 500, rules.MinEnrollment)
	assert.Equal(t, 2.5, rules.Threshold)
	assert.Equal(t, 3.0, rules.Weights.Phase3)
	assert.Equal(t, 1.0, rules.Weights.Blinded)
	assert.Equal(t, 0.5, rules.Weights.Treatment)
	assert.Equal(t, "FLAT", c.Strategy.Params["low"])
}

func TestLoadScoringDisabled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "study.yaml", "scoring:\n  enabled: false\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.False(t, c.ScoringRules().Enabled)
	assert.Equal(t, 4.0, c.ScoringRules().Threshold)
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]string{
		"strategy":  "strategy:\n  name: momentum\n",
		"window":    "study:\n  event_window: {start: 2, end: -2}\n",
		"policy":    "study:\n  date_policy: previous\n",
		"provider":  "data:\n  provider: yahoo\n",
		"range":     "data:\n  start: 2024-02-01\n  end: 2024-01-01\n",
		"bad date":  "data:\n  start: yesterday\n",
		"threshold": "scoring:\n  threshold: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "study.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)

			_, err = LoadUnchecked(path)
			assert.NoError(t, err)
		})
	}
}

func TestLoadMissingScoringFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "study.yaml", "scoring_file: nope.yaml\n")
	_, err := LoadUnchecked(path)
	assert.Error(t, err)
}

func TestPipelineOptions(t *testing.T) {
	c := Default()
	c.Pipeline.Condition = "oncology"
	c.Pipeline.Phase = "phase3"
	c.Pipeline.Historical = true
	c.Pipeline.From = "2022-01-01"
	c.Pipeline.To = "2023-06-30"

	opts, err := c.PipelineOptions()
	require.NoError(t, err)
	assert.Equal(t, "oncology", opts.Query.Condition)
	assert.True(t, opts.Historical)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), opts.From)
	assert.Equal(t, time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC), opts.To)

	c.Pipeline.To = "not a date"
	_, err = c.PipelineOptions()
	assert.Error(t, err)
}

func TestMergeScoring(t *testing.T) {
	three := 3.0
	base := &ScoringConfig{Threshold: &three}
	assert.Same(t, base, MergeScoring(nil, base))

	out := MergeScoring(base, nil)
	assert.Equal(t, 3.0, *out.Threshold)
	assert.NotSame(t, base, out)
}

func TestPartialWeightsKeepDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scoring.yaml", `
scoring:
  weights:
    phase3: 3
    blinded: 0
`)
	path := writeFile(t, dir, "study.yaml", `
scoring_file: scoring.yaml
scoring:
  weights:
    enrollment: 2
`)
	c, err := Load(path)
	require.NoError(t, err)

	want := scoring.DefaultRules().Weights
	want.Phase3 = 3
	want.Blinded = 0
	want.Enrollment = 2
	assert.Equal(t, want, c.ScoringRules().Weights)
}

func TestLoadServerFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("CACHE_TTL", "bogus")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "stooq", cfg.Data.PriceProvider)
}

func TestLoadServerRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := LoadServer()
	assert.Error(t, err)
}

func TestLoadExampleConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "examples", "study.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "stooq", c.Data.Provider)
	assert.Equal(t, eventstudy.DatePolicyNext, c.Study.ToParams().DatePolicy)
	rules := c.ScoringRules()
	assert.True(t, rules.Enabled)
	assert.Equal(t, 300, rules.MinEnrollment)

	opts, err := c.PipelineOptions()
	require.NoError(t, err)
	assert.True(t, opts.Historical)
	assert.Equal(t, 2020, opts.From.Year())
}
