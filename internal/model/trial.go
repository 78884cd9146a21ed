package model

import (
	"strings"
	"time"
)

// DatePrecision records how much of a ClinicalTrials.gov date was given.
type DatePrecision string

const (
	DatePrecisionDay   DatePrecision = "day"
	DatePrecisionMonth DatePrecision = "month"
	DatePrecisionNone  DatePrecision = ""
)

// Trial is the subset of a ClinicalTrials.gov study record we work with.
// Missing text fields hold "N/A".
type Trial struct {
	NCTID        string   `json:"nct_id"`
	Title        string   `json:"title"`
	Sponsor      string   `json:"sponsor"`
	SponsorClass string   `json:"sponsor_class,omitempty"`
	Conditions   []string `json:"conditions,omitempty"`
	Phases       []string `json:"phases,omitempty"`
	Status       string   `json:"status"`

	// CompletionDate is the primary completion date, or the study completion
	// date when no primary completion is listed. This is the event date.
	CompletionDate          time.Time     `json:"completion_date,omitempty"`
	CompletionDatePrecision DatePrecision `json:"completion_date_precision,omitempty"`

	EnrollmentCount int    `json:"enrollment_count,omitempty"`
	Allocation      string `json:"allocation,omitempty"`
	Masking         string `json:"masking,omitempty"`
	PrimaryPurpose  string `json:"primary_purpose,omitempty"`
	ArmCount        int    `json:"arm_count,omitempty"`
}

// PhaseLabel joins phases the way events carry them ("PHASE2, PHASE3").
func (t Trial) PhaseLabel() string {
	if len(t.Phases) == 0 {
		return "N/A"
	}
	return strings.Join(t.Phases, ", ")
}

func (t Trial) HasPhase(phase string) bool {
	for _, p := range t.Phases {
		if strings.EqualFold(p, phase) {
			return true
		}
	}
	return false
}

// MappedTrial is a trial whose sponsor resolved to a listed ticker.
type MappedTrial struct {
	Trial
	Ticker string `json:"ticker"`
}
