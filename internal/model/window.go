package model

import "fmt"

// EventWindow is a range of trading-day offsets around an event date, inclusive.
// (-5, 1) means enter 5 trading days before the event and exit 1 day after.
type EventWindow struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

var DefaultEventWindow = EventWindow{Start: -5, End: 1}

func (w EventWindow) Validate() error {
	if w.Start > w.End {
		return fmt.Errorf("event window start (%d) must be <= end (%d)", w.Start, w.End)
	}
	return nil
}

// Len is the number of trading days in the window.
func (w EventWindow) Len() int {
	return w.End - w.Start + 1
}

// Lead is how many trading days before the event the window opens.
func (w EventWindow) Lead() int {
	if w.Start < 0 {
		return -w.Start
	}
	return w.Start
}

func (w EventWindow) String() string {
	return fmt.Sprintf("(%d,%+d)", w.Start, w.End)
}
