package strategy

import "biotech-event-study/internal/model"

// QualityStrategy trades the quality signal: by default long HIGH-rated
// readouts, short LOW-rated ones and stay out of unscored events.
type QualityStrategy struct {
	High          model.Position
	Low           model.Position
	NeedsAnalysis model.Position
}

func (s *QualityStrategy) Name() string { return "quality" }

func (s *QualityStrategy) Decide(ctx Context) model.Position {
	switch ctx.Event.QualityScore {
	case model.QualityHigh:
		return s.High
	case model.QualityLow:
		return s.Low
	default:
		return s.NeedsAnalysis
	}
}

// LongOnly buys every catalyst. It is the baseline the quality signal has to beat.
type LongOnly struct{}

func (LongOnly) Name() string { return "long_only" }

func (LongOnly) Decide(Context) model.Position { return model.PositionLong }
