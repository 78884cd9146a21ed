package strategy

import "biotech-event-study/internal/model"

// Oracle uses perfect foresight of each event's CAR: long when the abnormal
// move was positive, short when negative. Its abnormal return is the upper
// bound any signal could capture on the same event set.
type Oracle struct{}

func (Oracle) Name() string { return "oracle" }

func (Oracle) Decide(ctx Context) model.Position {
	return model.PositionFromSign(ctx.CAR)
}
