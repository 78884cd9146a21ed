package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PriceBar is one daily adjusted close.
type PriceBar struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries holds daily bars for one ticker, sorted ascending by date.
type PriceSeries struct {
	Ticker string     `json:"ticker"`
	Bars   []PriceBar `json:"bars"`
}

// Sort orders bars by date and drops duplicate dates (last one wins).
func (s *PriceSeries) Sort() {
	sort.SliceStable(s.Bars, func(i, j int) bool { return s.Bars[i].Date.Before(s.Bars[j].Date) })
	if len(s.Bars) < 2 {
		return
	}
	out := s.Bars[:1]
	for _, b := range s.Bars[1:] {
		if b.Date.Equal(out[len(out)-1].Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	s.Bars = out
}

// ReturnSeries holds daily log returns. Dates[i] is the later day of the
// pair and Prev[i] the earlier one, so a return spanning a missing bar can be
// told apart from a one-day return.
type ReturnSeries struct {
	Ticker  string
	Dates   []time.Time
	Prev    []time.Time
	Returns []float64
}

func (r ReturnSeries) Len() int { return len(r.Returns) }

// LogReturns computes ln(P_t / P_{t-1}) for consecutive bars.
// Pairs with a non-positive or non-finite price are dropped.
func LogReturns(s PriceSeries) (ReturnSeries, error) {
	out := ReturnSeries{Ticker: s.Ticker}
	if len(s.Bars) < 2 {
		return out, fmt.Errorf("ticker %s: need at least 2 prices, got %d", s.Ticker, len(s.Bars))
	}
	out.Dates = make([]time.Time, 0, len(s.Bars)-1)
	out.Prev = make([]time.Time, 0, len(s.Bars)-1)
	out.Returns = make([]float64, 0, len(s.Bars)-1)
	for i := 1; i < len(s.Bars); i++ {
		prev, cur := s.Bars[i-1].Close, s.Bars[i].Close
		if !validPrice(prev) || !validPrice(cur) {
			continue
		}
		out.Dates = append(out.Dates, s.Bars[i].Date)
		out.Prev = append(out.Prev, s.Bars[i-1].Date)
		out.Returns = append(out.Returns, math.Log(cur/prev))
	}
	return out, nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}
