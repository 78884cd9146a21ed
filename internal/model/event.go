package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// QualityScore is the trial quality rating attached to an event.
type QualityScore string

const (
	QualityHigh          QualityScore = "HIGH"
	QualityLow           QualityScore = "LOW"
	QualityNeedsAnalysis QualityScore = "NEEDS_ANALYSIS"
)

// ParseQualityScore accepts HIGH/LOW/NEEDS_ANALYSIS in any case.
// An empty string maps to NEEDS_ANALYSIS.
func ParseQualityScore(s string) (QualityScore, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIGH":
		return QualityHigh, nil
	case "LOW":
		return QualityLow, nil
	case "", "NEEDS_ANALYSIS", "N/A":
		return QualityNeedsAnalysis, nil
	default:
		return "", fmt.Errorf("invalid quality score %q", s)
	}
}

// Event is one catalyst to study: a ticker and the date its trial reads out.
type Event struct {
	Ticker       string       `json:"ticker"`
	EventDate    time.Time    `json:"event_date"`
	TrialID      string       `json:"trial_id,omitempty"`
	CatalystType string       `json:"catalyst_type,omitempty"`
	QualityScore QualityScore `json:"quality_score"`
}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]*$`)

// ValidTicker accepts exchange symbols such as ITCI, BRK.B or RDS-A.
// Tickers become file names and URL parameters, so path separators and
// ".." are rejected.
func ValidTicker(ticker string) bool {
	return tickerPattern.MatchString(ticker) && !strings.Contains(ticker, "..")
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.Ticker) == "" {
		return fmt.Errorf("ticker is required")
	}
	if !ValidTicker(strings.ToUpper(strings.TrimSpace(e.Ticker))) {
		return fmt.Errorf("invalid ticker %q", e.Ticker)
	}
	if e.EventDate.IsZero() {
		return fmt.Errorf("event_date is required (ticker=%s)", e.Ticker)
	}
	return nil
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
