package models

import "biotech-event-study/internal/model"

// StudyRequest represents the request body for running an event study.
// Events come inline, as CSV text, or both.
type StudyRequest struct {
	Name      string         `json:"name,omitempty"`
	Events    []EventInput   `json:"events,omitempty"`
	EventsCSV string         `json:"events_csv,omitempty"` // ticker,event_date,... as written by the pipeline
	Params    StudyParams    `json:"params,omitempty"`
	Strategy  StrategyConfig `json:"strategy,omitempty"`
	Prices    PriceRange     `json:"prices,omitempty"`
	Options   StudyOptions   `json:"options,omitempty"`
}

// EventInput is one catalyst in a request.
type EventInput struct {
	Ticker       string `json:"ticker" binding:"required"`
	EventDate    string `json:"event_date" binding:"required"` // YYYY-MM-DD
	TrialID      string `json:"trial_id,omitempty"`
	CatalystType string `json:"catalyst_type,omitempty"`
	QualityScore string `json:"quality_score,omitempty"` // HIGH | LOW | NEEDS_ANALYSIS
}

// StudyParams overrides the default study parameters. Zero values keep
// the default (XBI, 60 days, (-5,+1), exact).
type StudyParams struct {
	Benchmark          string             `json:"benchmark,omitempty"`
	EstimationWindow   int                `json:"estimation_window,omitempty"`
	EventWindow        *model.EventWindow `json:"event_window,omitempty"`
	DatePolicy         string             `json:"date_policy,omitempty"`
	ExcludeOverlapping *bool              `json:"exclude_overlapping,omitempty"`
}

// StrategyConfig selects the backtest strategy. Empty name means "quality".
type StrategyConfig struct {
	Name   string         `json:"name,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

// PriceRange optionally bounds the price download.
type PriceRange struct {
	Start string `json:"start,omitempty"` // YYYY-MM-DD
	End   string `json:"end,omitempty"`   // YYYY-MM-DD
}

type StudyOptions struct {
	IncludeDays bool `json:"include_days,omitempty"` // per-day abnormal returns; default false
	DryRun      bool `json:"dry_run,omitempty"`      // run without persisting
}

// CompareStudiesRequest runs several parameter variations over one event set.
type CompareStudiesRequest struct {
	Events     []EventInput     `json:"events,omitempty"`
	EventsCSV  string           `json:"events_csv,omitempty"`
	BaseParams StudyParams      `json:"base_params,omitempty"`
	Strategy   StrategyConfig   `json:"strategy,omitempty"`
	Variations []StudyVariation `json:"variations" binding:"required,min=1,dive"`
}

// StudyVariation defines a variation to test
type StudyVariation struct {
	Name   string      `json:"name" binding:"required"`
	Params StudyParams `json:"params"`
}

// TrialSearchRequest runs the ClinicalTrials.gov pipeline.
type TrialSearchRequest struct {
	Condition  string   `json:"condition" binding:"required"`
	Phase      string   `json:"phase,omitempty"` // default PHASE3
	Statuses   []string `json:"statuses,omitempty"`
	MaxResults int      `json:"max_results,omitempty"`
	DaysAhead  int      `json:"days_ahead,omitempty"`
	Historical bool     `json:"historical,omitempty"`
	From       string   `json:"from,omitempty"` // YYYY-MM-DD, historical mode
	To         string   `json:"to,omitempty"`   // YYYY-MM-DD, historical mode
}

// ListRequest is the query string of list endpoints.
type ListRequest struct {
	Limit int `form:"limit,omitempty"` // default: 50
}
