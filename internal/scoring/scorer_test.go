package scoring

import (
	"testing"

	"biotech-event-study/internal/model"

	"github.com/stretchr/testify/assert"
)

func pivotal() model.Trial {
	return model.Trial{
		NCTID:           "NCT1",
		Phases:          []string{"PHASE3"},
		Allocation:      "RANDOMIZED",
		Masking:         "QUADRUPLE",
		EnrollmentCount: 800,
		SponsorClass:    "INDUSTRY",
		PrimaryPurpose:  "TREATMENT",
	}
}

func TestScoreHigh(t *testing.T) {
	b := New(DefaultRules()).Score(pivotal())
	assert.Equal(t, model.QualityHigh, b.Score)
	assert.InDelta(t, 6.0, b.Points, 1e-9)
	assert.Len(t, b.Features, 6)
}

func TestScoreLow(t *testing.T) {
	tr := pivotal()
	tr.Phases = []string{"PHASE2"}
	tr.Masking = "NONE"
	b := New(DefaultRules()).Score(tr)
	assert.Equal(t, model.QualityLow, b.Score)
	assert.InDelta(t, 3.0, b.Points, 1e-9)
	assert.NotContains(t, b.Features, "blinded")
}

func TestScoreDisabled(t *testing.T) {
	rules := DefaultRules()
	rules.Enabled = false
	assert.Equal(t, model.QualityNeedsAnalysis, New(rules).Score(pivotal()).Score)

	var s *Scorer
	assert.Equal(t, model.QualityNeedsAnalysis, s.Score(pivotal()).Score)
}

func TestRulesValidate(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())

	r := DefaultRules()
	r.Threshold = 0
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.Weights.Blinded = -1
	assert.Error(t, r.Validate())

	assert.NoError(t, Rules{}.Validate())
}

func TestEnrollmentCountsFromMinimum(t *testing.T) {
	s := New(DefaultRules())
	tr := pivotal()

	tr.EnrollmentCount = 300
	assert.Contains(t, s.Score(tr).Features, "enrollment")

	tr.EnrollmentCount = 299
	b := s.Score(tr)
	assert.NotContains(t, b.Features, "enrollment")
	assert.InDelta(t, 5.0, b.Points, 1e-9)
}
