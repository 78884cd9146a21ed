package model

// Position is the side taken on an event.
// Keep these values stable; they are intended for CSV output.
type Position string

const (
	PositionLong  Position = "LONG"
	PositionFlat  Position = "FLAT"
	PositionShort Position = "SHORT"
)

func PositionFromSign(x float64) Position {
	switch {
	case x > 0:
		return PositionLong
	case x < 0:
		return PositionShort
	default:
		return PositionFlat
	}
}

// Sign returns +1 for LONG, -1 for SHORT and 0 otherwise.
func (p Position) Sign() float64 {
	switch p {
	case PositionLong:
		return 1
	case PositionShort:
		return -1
	default:
		return 0
	}
}
