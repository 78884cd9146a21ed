package models

import (
	"time"

	"biotech-event-study/internal/analysis"
	"biotech-event-study/internal/eventstudy"
	"biotech-event-study/internal/model"
)

// StudyResponse represents the response from a study run
type StudyResponse struct {
	ID            string                    `json:"id,omitempty"`
	Name          string                    `json:"name,omitempty"`
	Status        string                    `json:"status"`
	CreatedAt     time.Time                 `json:"created_at"`
	Params        eventstudy.Params         `json:"params"`
	Summary       analysis.Summary          `json:"summary"`
	CAAR          []analysis.CAARPoint      `json:"caar,omitempty"`
	Backtest      *BacktestSummary          `json:"backtest,omitempty"`
	Events        []eventstudy.EventResult  `json:"events,omitempty"`
	Skipped       []eventstudy.SkippedEvent `json:"skipped,omitempty"`
	FailedTickers map[string]string         `json:"failed_tickers,omitempty"`
}

// BacktestSummary is the strategy result without the per-trade list.
type BacktestSummary struct {
	Strategy      string  `json:"strategy"`
	NTrades       int     `json:"n_trades"`
	TotalReturn   float64 `json:"total_return"`
	TotalAbnormal float64 `json:"total_abnormal"`
	MeanAbnormal  float64 `json:"mean_abnormal"`
	HitRate       float64 `json:"hit_rate"`
}

// StudyListItem is one row of GET /studies.
type StudyListItem struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Params    eventstudy.Params `json:"params"`
	NEvents   int               `json:"n_events"`
	MeanCAR   float64           `json:"mean_car"`
}

// CompareStudiesResponse represents the response from comparing studies
type CompareStudiesResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult represents one variation in a comparison
type ComparisonResult struct {
	Name     string            `json:"name"`
	Params   eventstudy.Params `json:"params"`
	Summary  *analysis.Summary `json:"summary,omitempty"`
	Backtest *BacktestSummary  `json:"backtest,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// RankResponse lists tickers ordered by mean CAR.
type RankResponse struct {
	StudyID string                `json:"study_id"`
	Tickers []analysis.TickerRank `json:"tickers"`
	Count   int                   `json:"count"`
}

// TrialSearchResponse is the pipeline output.
type TrialSearchResponse struct {
	TrialsFetched     int                 `json:"trials_fetched"`
	TrialsMatched     int                 `json:"trials_matched"`
	Selected          []model.MappedTrial `json:"selected"`
	Events            []model.Event       `json:"events"`
	UnmatchedSponsors []string            `json:"unmatched_sponsors"`
}

// SponsorInfo is one entry of the sponsor map.
type SponsorInfo struct {
	Sponsor string `json:"sponsor"`
	Ticker  string `json:"ticker"`
}

// StrategyInfo describes an available strategy
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Default     interface{} `json:"default"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
