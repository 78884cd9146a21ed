package strategy

import (
	"fmt"

	"biotech-event-study/internal/model"
)

// Context is what a strategy sees for one studied event.
// CAR and RealReturn are realized outcomes; only hindsight strategies
// (oracle) may look at them.
type Context struct {
	Index      int
	Event      model.Event
	CAR        float64
	RealReturn float64
}

type Strategy interface {
	Name() string
	Decide(ctx Context) model.Position
}

// Build constructs a strategy by name from loosely typed params
// (YAML or JSON decoded).
func Build(name string, params map[string]any) (Strategy, error) {
	switch name {
	case "quality", "":
		return &QualityStrategy{
			High:          parsePosition(params, "high", model.PositionLong),
			Low:           parsePosition(params, "low", model.PositionShort),
			NeedsAnalysis: parsePosition(params, "needs_analysis", model.PositionFlat),
		}, nil
	case "long_only":
		return LongOnly{}, nil
	case "oracle":
		return Oracle{}, nil
	default:
		return nil, fmt.Errorf("unsupported strategy: %q", name)
	}
}

// Names lists the strategies Build understands.
func Names() []string {
	return []string{"quality", "long_only", "oracle"}
}

func parsePosition(m map[string]any, key string, def model.Position) model.Position {
	v, ok := m[key]
	if !ok || v == nil {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	switch model.Position(s) {
	case model.PositionLong, model.PositionShort, model.PositionFlat:
		return model.Position(s)
	}
	switch s {
	case "long":
		return model.PositionLong
	case "short":
		return model.PositionShort
	case "flat":
		return model.PositionFlat
	}
	return def
}
