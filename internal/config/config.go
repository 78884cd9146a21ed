package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"biotech-event-study/internal/data"
	"biotech-event-study/internal/eventstudy"
	"biotech-event-study/internal/model"
	"biotech-event-study/internal/pipeline"
	"biotech-event-study/internal/scoring"
	"biotech-event-study/internal/strategy"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk study configuration (YAML).
type Config struct {
	Study    StudyConfig    `yaml:"study"`
	Data     DataConfig     `yaml:"data"`
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Optional: load scoring rules from a separate YAML (e.g. examples/scoring/*.yaml).
	// If both ScoringFile and Scoring are provided, Scoring overrides ScoringFile.
	ScoringFile string         `yaml:"scoring_file"`
	Scoring     *ScoringConfig `yaml:"scoring"`

	Strategy StrategyConfig `yaml:"strategy"`
	Output   OutputConfig   `yaml:"output"`
}

type StudyConfig struct {
	Benchmark          string            `yaml:"benchmark"`
	EstimationWindow   int               `yaml:"estimation_window"`
	EventWindow        model.EventWindow `yaml:"event_window"`
	DatePolicy         string            `yaml:"date_policy"`
	ExcludeOverlapping bool              `yaml:"exclude_overlapping"`
}

type DataConfig struct {
	EventsFile string `yaml:"events_file"`

	// Provider is "csv" (PricesDir/<TICKER>.csv) or "stooq".
	Provider    string `yaml:"provider"`
	PricesDir   string `yaml:"prices_dir"`
	StooqURL    string `yaml:"stooq_url"`
	Start       string `yaml:"start"` // YYYY-MM-DD
	End         string `yaml:"end"`   // YYYY-MM-DD
	Concurrency int    `yaml:"concurrency"`
}

type PipelineConfig struct {
	Condition      string   `yaml:"condition"`
	Phase          string   `yaml:"phase"`
	Statuses       []string `yaml:"statuses"`
	MaxResults     int      `yaml:"max_results"`
	DaysAhead      int      `yaml:"days_ahead"`
	Historical     bool     `yaml:"historical"`
	From           string   `yaml:"from"`
	To             string   `yaml:"to"`
	SponsorMapFile string   `yaml:"sponsor_map_file"`
	SnapshotFile   string   `yaml:"snapshot_file"`
	ClinicalTrials string   `yaml:"clinicaltrials_url"`
}

// ScoringConfig mirrors scoring.Rules with pointer fields so a partial
// override can be told apart from explicit zeros.
type ScoringConfig struct {
	Enabled       *bool          `yaml:"enabled"`
	Weights       *WeightsConfig `yaml:"weights"`
	MinEnrollment *int           `yaml:"min_enrollment"`
	Threshold     *float64       `yaml:"threshold"`
}

// WeightsConfig overrides individual scoring.Weights; unset fields keep
// the value underneath.
type WeightsConfig struct {
	Phase3          *float64 `yaml:"phase3"`
	Randomized      *float64 `yaml:"randomized"`
	Blinded         *float64 `yaml:"blinded"`
	Enrollment      *float64 `yaml:"enrollment"`
	IndustrySponsor *float64 `yaml:"industry_sponsor"`
	Treatment       *float64 `yaml:"treatment"`
}

func (w *WeightsConfig) fields() []**float64 {
	return []**float64{&w.Phase3, &w.Randomized, &w.Blinded, &w.Enrollment, &w.IndustrySponsor, &w.Treatment}
}

// applyTo writes the set fields onto dst.
func (w *WeightsConfig) applyTo(dst *scoring.Weights) {
	targets := []*float64{&dst.Phase3, &dst.Randomized, &dst.Blinded, &dst.Enrollment, &dst.IndustrySponsor, &dst.Treatment}
	for i, f := range w.fields() {
		if *f != nil {
			*targets[i] = **f
		}
	}
}

func mergeWeights(base, override *WeightsConfig) *WeightsConfig {
	if base == nil {
		return override
	}
	out := *base
	if override == nil {
		return &out
	}
	dst := out.fields()
	for i, f := range override.fields() {
		if *f != nil {
			*dst[i] = *f
		}
	}
	return &out
}

type StrategyConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns a config that studies events.csv against XBI with prices
// from data/prices.
func Default() *Config {
	p := eventstudy.DefaultParams()
	return &Config{
		Study: StudyConfig{
			Benchmark:        p.Benchmark,
			EstimationWindow: p.EstimationWindow,
			EventWindow:      p.EventWindow,
			DatePolicy:       string(p.DatePolicy),
		},
		Data: DataConfig{
			EventsFile:  "events.csv",
			Provider:    "csv",
			PricesDir:   "data/prices",
			Concurrency: 4,
		},
		Pipeline: PipelineConfig{
			MaxResults:     100,
			DaysAhead:      180,
			SponsorMapFile: "sponsor_ticker_map.csv",
		},
		Strategy: StrategyConfig{Name: "quality"},
		Output:   OutputConfig{Dir: "out"},
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads defaults, the YAML file and any scoring file, but does
// not validate the result.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.ScoringFile != "" {
		loaded, err := loadScoringFile(resolveRelative(path, c.ScoringFile))
		if err != nil {
			return nil, err
		}
		c.Scoring = MergeScoring(loaded, c.Scoring)
	}
	return c, nil
}

// resolveRelative interprets rel relative to the config file directory,
// falling back to the path as given (relative to cwd) when that doesn't exist.
func resolveRelative(configPath, rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	cand := filepath.Join(filepath.Dir(configPath), rel)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return rel
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Strategy.Name == "" {
		return errors.New("strategy.name is required")
	}
	if _, err := strategy.Build(c.Strategy.Name, c.Strategy.Params); err != nil {
		return err
	}
	if _, err := eventstudy.New(c.Study.ToParams()); err != nil {
		return fmt.Errorf("study config invalid: %w", err)
	}
	if err := c.ScoringRules().Validate(); err != nil {
		return fmt.Errorf("scoring config invalid: %w", err)
	}
	switch c.Data.Provider {
	case "csv":
		if c.Data.PricesDir == "" {
			return errors.New("data.prices_dir is required for the csv provider")
		}
	case "stooq":
	default:
		return fmt.Errorf("invalid data.provider %q (expected csv|stooq)", c.Data.Provider)
	}
	if _, _, err := c.Data.Range(); err != nil {
		return err
	}
	return nil
}

func (s StudyConfig) ToParams() eventstudy.Params {
	return eventstudy.Params{
		Benchmark:          s.Benchmark,
		EstimationWindow:   s.EstimationWindow,
		EventWindow:        s.EventWindow,
		DatePolicy:         eventstudy.DatePolicy(strings.ToLower(s.DatePolicy)),
		ExcludeOverlapping: s.ExcludeOverlapping,
	}
}

// Range parses the optional price date range. Zero values mean "derive from
// the events".
func (d DataConfig) Range() (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if d.Start != "" {
		if start, err = data.ParseDate(d.Start); err != nil {
			return start, end, fmt.Errorf("data.start: %w", err)
		}
	}
	if d.End != "" {
		if end, err = data.ParseDate(d.End); err != nil {
			return start, end, fmt.Errorf("data.end: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return start, end, errors.New("data.start must be before data.end")
	}
	return start, end, nil
}

// ScoringRules resolves the scoring section over scoring.DefaultRules.
func (c *Config) ScoringRules() scoring.Rules {
	rules := scoring.DefaultRules()
	if c.Scoring == nil {
		return rules
	}
	s := c.Scoring
	if s.Enabled != nil {
		rules.Enabled = *s.Enabled
	}
	if s.Weights != nil {
		s.Weights.applyTo(&rules.Weights)
	}
	if s.MinEnrollment != nil {
		rules.MinEnrollment = *s.MinEnrollment
	}
	if s.Threshold != nil {
		rules.Threshold = *s.Threshold
	}
	return rules
}

// PipelineOptions converts the pipeline section into pipeline.Options.
func (c *Config) PipelineOptions() (pipeline.Options, error) {
	p := c.Pipeline
	opts := pipeline.Options{
		Query: data.SearchParams{
			Condition:  p.Condition,
			Phase:      p.Phase,
			Statuses:   p.Statuses,
			MaxResults: p.MaxResults,
		},
		Historical: p.Historical,
		DaysAhead:  p.DaysAhead,
	}
	var err error
	if p.From != "" {
		if opts.From, err = data.ParseDate(p.From); err != nil {
			return opts, fmt.Errorf("pipeline.from: %w", err)
		}
	}
	if p.To != "" {
		if opts.To, err = data.ParseDate(p.To); err != nil {
			return opts, fmt.Errorf("pipeline.to: %w", err)
		}
	}
	return opts, nil
}

type scoringFileWrapper struct {
	Scoring ScoringConfig `yaml:"scoring"`
}

func loadScoringFile(path string) (*ScoringConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w scoringFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &w.Scoring, nil
}

// MergeScoring overlays the fields set in override onto base.
// This is used when loading a scoring file and then applying overrides from
// the config or a request.
func MergeScoring(base, override *ScoringConfig) *ScoringConfig {
	if base == nil {
		return override
	}
	out := *base
	if override == nil {
		return &out
	}
	if override.Enabled != nil {
		out.Enabled = override.Enabled
	}
	out.Weights = mergeWeights(base.Weights, override.Weights)
	if override.MinEnrollment != nil {
		out.MinEnrollment = override.MinEnrollment
	}
	if override.Threshold != nil {
		out.Threshold = override.Threshold
	}
	return &out
}
