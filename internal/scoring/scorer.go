// Package scoring rates trial design quality as HIGH or LOW.
package scoring

import (
	"fmt"
	"strings"

	"biotech-event-study/internal/model"
)

// Weights are the points each design feature contributes.
type Weights struct {
	Phase3          float64 `yaml:"phase3" json:"phase3"`
	Randomized      float64 `yaml:"randomized" json:"randomized"`
	Blinded         float64 `yaml:"blinded" json:"blinded"`
	Enrollment      float64 `yaml:"enrollment" json:"enrollment"`
	IndustrySponsor float64 `yaml:"industry_sponsor" json:"industry_sponsor"`
	Treatment       float64 `yaml:"treatment" json:"treatment"`
}

// Rules configure the scorer. A trial scoring at or above Threshold is HIGH.
// Enrollment earns its weight from MinEnrollment participants upward.
type Rules struct {
	Enabled       bool    `yaml:"enabled" json:"enabled"`
	Weights       Weights `yaml:"weights" json:"weights"`
	MinEnrollment int     `yaml:"min_enrollment" json:"min_enrollment"`
	Threshold     float64 `yaml:"threshold" json:"threshold"`
}

// DefaultRules favour large, randomized, blinded pivotal trials.
func DefaultRules() Rules {
	return Rules{
		Enabled: true,
		Weights: Weights{
			Phase3:          2,
			Randomized:      1,
			Blinded:         1,
			Enrollment:      1,
			IndustrySponsor: 0.5,
			Treatment:       0.5,
		},
		MinEnrollment: 300,
		Threshold:     4,
	}
}

func (r Rules) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Threshold <= 0 {
		return fmt.Errorf("scoring threshold must be > 0")
	}
	if r.MinEnrollment < 0 {
		return fmt.Errorf("scoring min_enrollment must be >= 0")
	}
	w := r.Weights
	for name, v := range map[string]float64{
		"phase3": w.Phase3, "randomized": w.Randomized, "blinded": w.Blinded,
		"enrollment": w.Enrollment, "industry_sponsor": w.IndustrySponsor, "treatment": w.Treatment,
	} {
		if v < 0 {
			return fmt.Errorf("scoring weight %s must be >= 0", name)
		}
	}
	return nil
}

// Scorer applies Rules to trials.
type Scorer struct {
	Rules Rules
}

func New(rules Rules) *Scorer {
	return &Scorer{Rules: rules}
}

// Breakdown lists the points each feature contributed.
type Breakdown struct {
	Points   float64            `json:"points"`
	Features map[string]float64 `json:"features"`
	Score    model.QualityScore `json:"score"`
}

// Score rates t. With scoring disabled (or a nil scorer) every trial is
// NEEDS_ANALYSIS.
func (s *Scorer) Score(t model.Trial) Breakdown {
	b := Breakdown{Features: map[string]float64{}, Score: model.QualityNeedsAnalysis}
	if s == nil || !s.Rules.Enabled {
		return b
	}
	w := s.Rules.Weights

	add := func(name string, ok bool, pts float64) {
		if ok && pts > 0 {
			b.Features[name] = pts
			b.Points += pts
		}
	}
	add("phase3", t.HasPhase("PHASE3"), w.Phase3)
	add("randomized", strings.EqualFold(t.Allocation, "RANDOMIZED"), w.Randomized)
	add("blinded", blinded(t.Masking), w.Blinded)
	add("enrollment", t.EnrollmentCount >= s.Rules.MinEnrollment && t.EnrollmentCount > 0, w.Enrollment)
	add("industry_sponsor", strings.EqualFold(t.SponsorClass, "INDUSTRY"), w.IndustrySponsor)
	add("treatment", strings.EqualFold(t.PrimaryPurpose, "TREATMENT"), w.Treatment)

	if b.Points >= s.Rules.Threshold {
		b.Score = model.QualityHigh
	} else {
		b.Score = model.QualityLow
	}
	return b
}

// blinded is true for double masking or stronger.
func blinded(masking string) bool {
	switch strings.ToUpper(masking) {
	case "DOUBLE", "TRIPLE", "QUADRUPLE":
		return true
	}
	return false
}
