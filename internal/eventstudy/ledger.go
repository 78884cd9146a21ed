package eventstudy

import (
	"time"

	"biotech-event-study/internal/model"
)

// AbnormalDay is one trading day inside an event window.
type AbnormalDay struct {
	RelDay       int       `json:"rel_day"`
	Date         time.Time `json:"date"`
	Return       float64   `json:"return"`
	MarketReturn float64   `json:"market_return"`
	Expected     float64   `json:"expected"`
	Abnormal     float64   `json:"abnormal"`
	CumAbnormal  float64   `json:"cum_abnormal"`
}

// EventResult is the study outcome for one event.
// This is the primary artifact for "what happened" around a catalyst.
type EventResult struct {
	Index int `json:"index"`

	Ticker       string             `json:"ticker"`
	TrialID      string             `json:"trial_id,omitempty"`
	CatalystType string             `json:"catalyst_type,omitempty"`
	QualityScore model.QualityScore `json:"quality_score"`

	EventDate   time.Time `json:"event_date"`
	TradingDate time.Time `json:"trading_date"`

	Model MarketModel `json:"model"`

	CAR          float64 `json:"car"`
	CARTStat     float64 `json:"car_t_stat"`
	RealReturn   float64 `json:"real_return"`
	MarketReturn float64 `json:"market_return"`

	Days []AbnormalDay `json:"days,omitempty"`
}

// SkipReason explains why an event produced no result.
type SkipReason string

const (
	SkipInvalidEvent          SkipReason = "invalid_event"
	SkipMissingTicker         SkipReason = "missing_ticker"
	SkipNotTradingDay         SkipReason = "not_trading_day"
	SkipInsufficientHistory   SkipReason = "insufficient_history"
	SkipIncompleteEventWindow SkipReason = "incomplete_event_window"
	SkipDegenerateRegression  SkipReason = "degenerate_regression"
	SkipConfounded            SkipReason = "confounded"
)

type SkippedEvent struct {
	Event  model.Event `json:"event"`
	Reason SkipReason  `json:"reason"`
	Detail string      `json:"detail,omitempty"`
}

type Result struct {
	Params  Params         `json:"params"`
	Events  []EventResult  `json:"events"`
	Skipped []SkippedEvent `json:"skipped,omitempty"`
}

// CARs returns the CAR of every studied event, in order.
func (r *Result) CARs() []float64 {
	out := make([]float64, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.CAR
	}
	return out
}
