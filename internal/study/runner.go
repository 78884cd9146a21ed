// Package study runs an event study end to end: price loading, the
// market-model engine, a strategy backtest and the per-quality summary.
package study

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"biotech-event-study/internal/analysis"
	"biotech-event-study/internal/data"
	"biotech-event-study/internal/eventstudy"
	"biotech-event-study/internal/metrics"
	"biotech-event-study/internal/model"
	"biotech-event-study/internal/strategy"

	log "github.com/sirupsen/logrus"
)

// ErrBenchmarkUnavailable is returned when benchmark prices cannot be loaded.
var ErrBenchmarkUnavailable = errors.New("benchmark prices unavailable")

type Request struct {
	Events         []model.Event
	Params         eventstudy.Params
	Strategy       string
	StrategyParams map[string]any
	// Start and End bound the price download. Zero values are derived from
	// the event dates and windows.
	Start time.Time
	End   time.Time
}

// Outcome is everything a study run produces.
type Outcome struct {
	Result        *eventstudy.Result         `json:"result"`
	Backtest      *eventstudy.BacktestResult `json:"backtest"`
	Summary       analysis.Summary           `json:"summary"`
	CAAR          []analysis.CAARPoint       `json:"caar"`
	FailedTickers map[string]string          `json:"failed_tickers,omitempty"`
}

type Runner struct {
	Prices      data.PriceProvider
	Metrics     *metrics.Metrics
	Concurrency int
}

func NewRunner(prices data.PriceProvider) *Runner {
	return &Runner{Prices: prices, Concurrency: 4}
}

func (r *Runner) Run(ctx context.Context, req Request) (*Outcome, error) {
	if len(req.Events) == 0 {
		return nil, errors.New("no events")
	}
	engine, err := eventstudy.New(req.Params)
	if err != nil {
		return nil, err
	}
	engine.Metrics = r.Metrics
	strat, err := strategy.Build(req.Strategy, req.StrategyParams)
	if err != nil {
		return nil, err
	}

	start, end := req.Start, req.End
	if start.IsZero() || end.IsZero() {
		s, e := PriceRange(req.Events, engine.Params)
		if start.IsZero() {
			start = s
		}
		if end.IsZero() {
			end = e
		}
	}

	md, failed, err := r.LoadMarketData(ctx, Tickers(req.Events), []string{engine.Params.Benchmark}, start, end)
	if err != nil {
		return nil, err
	}
	return r.study(engine, strat, req.Events, md, failed)
}

func (r *Runner) study(engine *eventstudy.Engine, strat strategy.Strategy, events []model.Event, md *eventstudy.MarketData, failed map[string]string) (*Outcome, error) {
	res, err := engine.Run(events, md)
	if err != nil {
		return nil, err
	}
	bt, err := eventstudy.Backtest(res, strat)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Result:        res,
		Backtest:      bt,
		Summary:       analysis.Summarize(res.Events),
		CAAR:          analysis.CAAR(res.Events),
		FailedTickers: failed,
	}, nil
}

// Variation overrides part of a base study.
type Variation struct {
	Name   string
	Params eventstudy.Params
}

// VariationOutcome is one row of a comparison. Err is set when the
// variation could not be run.
type VariationOutcome struct {
	Name    string
	Outcome *Outcome
	Err     error
}

// Compare runs every variation over the same events, loading prices once
// for the union of benchmarks and the widest window.
func (r *Runner) Compare(ctx context.Context, events []model.Event, strategyName string, strategyParams map[string]any, variations []Variation) ([]VariationOutcome, error) {
	if len(events) == 0 {
		return nil, errors.New("no events")
	}
	if len(variations) == 0 {
		return nil, errors.New("no variations")
	}
	strat, err := strategy.Build(strategyName, strategyParams)
	if err != nil {
		return nil, err
	}

	engines := make([]*eventstudy.Engine, len(variations))
	errs := make([]error, len(variations))
	var benchmarks []string
	var start, end time.Time
	for i, v := range variations {
		e, err := eventstudy.New(v.Params)
		if err != nil {
			errs[i] = err
			continue
		}
		e.Metrics = r.Metrics
		engines[i] = e
		benchmarks = append(benchmarks, e.Params.Benchmark)
		s, en := PriceRange(events, e.Params)
		if start.IsZero() || s.Before(start) {
			start = s
		}
		if en.After(end) {
			end = en
		}
	}

	var (
		md     *eventstudy.MarketData
		failed map[string]string
	)
	if len(benchmarks) > 0 {
		md, failed, err = r.loadMarketData(ctx, append(Tickers(events), benchmarks...), start, end)
		if err != nil {
			return nil, err
		}
	}

	out := make([]VariationOutcome, len(variations))
	for i, v := range variations {
		out[i].Name = v.Name
		if errs[i] != nil {
			out[i].Err = errs[i]
			continue
		}
		if !md.Has(engines[i].Params.Benchmark) {
			out[i].Err = fmt.Errorf("%w: %s", ErrBenchmarkUnavailable, engines[i].Params.Benchmark)
			continue
		}
		out[i].Outcome, out[i].Err = r.study(engines[i], strat, events, md, failed)
	}
	return out, nil
}

// LoadMarketData fetches tickers and benchmarks. Ticker failures are
// reported in the returned map; a benchmark failure is an error.
func (r *Runner) LoadMarketData(ctx context.Context, tickers, benchmarks []string, start, end time.Time) (*eventstudy.MarketData, map[string]string, error) {
	md, failed, err := r.loadMarketData(ctx, append(append([]string(nil), tickers...), benchmarks...), start, end)
	if err != nil {
		return nil, nil, err
	}
	for _, b := range benchmarks {
		b = strings.ToUpper(b)
		if !md.Has(b) {
			return nil, nil, fmt.Errorf("%w: %s: %s", ErrBenchmarkUnavailable, b, failed[b])
		}
	}
	return md, failed, nil
}

func (r *Runner) loadMarketData(ctx context.Context, tickers []string, start, end time.Time) (*eventstudy.MarketData, map[string]string, error) {
	if r.Prices == nil {
		return nil, nil, errors.New("no price provider configured")
	}
	series, fetchErrs := data.FetchAll(ctx, r.Prices, tickers, start, end, r.Concurrency)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	md, convErrs := eventstudy.NewMarketData(series)

	failed := make(map[string]string, len(fetchErrs)+len(convErrs))
	for t, err := range fetchErrs {
		failed[t] = err.Error()
	}
	for t, err := range convErrs {
		failed[t] = err.Error()
	}
	log.WithFields(log.Fields{
		"tickers": len(tickers),
		"loaded":  len(md.Tickers()),
		"failed":  len(failed),
		"start":   start.Format("2006-01-02"),
		"end":     end.Format("2006-01-02"),
	}).Info("study: market data ready")
	return md, failed, nil
}

// PriceRange returns a calendar range wide enough to cover every event's
// estimation and event windows. Trading days are converted with a 7/5
// ratio plus a margin for holidays.
func PriceRange(events []model.Event, params eventstudy.Params) (time.Time, time.Time) {
	var first, last time.Time
	for _, e := range events {
		if e.EventDate.IsZero() {
			continue
		}
		if first.IsZero() || e.EventDate.Before(first) {
			first = e.EventDate
		}
		if e.EventDate.After(last) {
			last = e.EventDate
		}
	}
	if first.IsZero() {
		return first, last
	}
	before := params.EstimationWindow + params.EventWindow.Lead() + 1
	after := params.EventWindow.End
	if after < 0 {
		after = 0
	}
	return model.DateOnly(first).AddDate(0, 0, -calendarDays(before)),
		model.DateOnly(last).AddDate(0, 0, calendarDays(after))
}

func calendarDays(tradingDays int) int {
	return tradingDays*7/5 + 10
}

// Tickers returns the distinct upper-cased tickers of events, sorted.
func Tickers(events []model.Event) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range events {
		t := strings.ToUpper(strings.TrimSpace(e.Ticker))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
