package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"biotech-event-study/internal/model"
)

var eventsHeader = []string{"ticker", "event_date", "trial_id", "catalyst_type", "quality_score"}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
}

// ParseDate accepts the date formats found in hand-edited CSVs and returns
// the calendar date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
}

// ReadEventsCSV loads events written by WriteEventsCSV or by hand.
// Only ticker and event_date are required columns.
func ReadEventsCSV(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadEvents(f)
}

func ReadEvents(r io.Reader) ([]model.Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read events header: %w", err)
	}
	cols := headerIndex(header)
	for _, req := range []string{"ticker", "event_date"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("events: missing %q column", req)
		}
	}
	col := func(name string) int {
		if i, ok := cols[name]; ok {
			return i
		}
		return -1
	}

	var events []model.Event
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("events line %d: %w", line, err)
		}
		date, err := ParseDate(field(rec, col("event_date")))
		if err != nil {
			return nil, fmt.Errorf("events line %d: %w", line, err)
		}
		quality, err := model.ParseQualityScore(field(rec, col("quality_score")))
		if err != nil {
			return nil, fmt.Errorf("events line %d: %w", line, err)
		}
		ev := model.Event{
			Ticker:       strings.ToUpper(field(rec, col("ticker"))),
			EventDate:    date,
			TrialID:      field(rec, col("trial_id")),
			CatalystType: field(rec, col("catalyst_type")),
			QualityScore: quality,
		}
		if err := ev.Validate(); err != nil {
			return nil, fmt.Errorf("events line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func WriteEventsCSV(path string, events []model.Event) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteEvents(f, events)
}

func WriteEvents(w io.Writer, events []model.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(eventsHeader); err != nil {
		return err
	}
	for _, e := range events {
		row := []string{
			e.Ticker,
			e.EventDate.Format("2006-01-02"),
			e.TrialID,
			e.CatalystType,
			string(e.QualityScore),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
