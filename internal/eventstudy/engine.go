package eventstudy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"biotech-event-study/internal/metrics"
	"biotech-event-study/internal/model"

	log "github.com/sirupsen/logrus"
)

// DatePolicy decides what happens when an event date is not a trading day.
type DatePolicy string

const (
	DatePolicyExact DatePolicy = "exact" // skip the event
	DatePolicyNext  DatePolicy = "next"  // use the next trading day
)

// Params configure an event study.
type Params struct {
	// Benchmark is the index ETF abnormal returns are measured against.
	Benchmark string `json:"benchmark"`
	// EstimationWindow is the number of trading days used to fit alpha and
	// beta. It ends where the event window starts so the event's own
	// volatility does not leak into beta.
	EstimationWindow int               `json:"estimation_window"`
	EventWindow      model.EventWindow `json:"event_window"`
	DatePolicy       DatePolicy        `json:"date_policy"`
	// ExcludeOverlapping skips an event whose window overlaps an earlier
	// studied event for the same ticker.
	ExcludeOverlapping bool `json:"exclude_overlapping"`
}

func DefaultParams() Params {
	return Params{
		Benchmark:        "XBI",
		EstimationWindow: 60,
		EventWindow:      model.DefaultEventWindow,
		DatePolicy:       DatePolicyExact,
	}
}

func (p Params) Validate() error {
	if strings.TrimSpace(p.Benchmark) == "" {
		return fmt.Errorf("benchmark is required")
	}
	if p.EstimationWindow < 3 {
		return fmt.Errorf("estimation_window must be >= 3, got %d", p.EstimationWindow)
	}
	if err := p.EventWindow.Validate(); err != nil {
		return err
	}
	switch p.DatePolicy {
	case DatePolicyExact, DatePolicyNext:
	default:
		return fmt.Errorf("invalid date_policy %q (expected exact|next)", p.DatePolicy)
	}
	return nil
}

type Engine struct {
	Params  Params
	Metrics *metrics.Metrics
}

func New(params Params) (*Engine, error) {
	params.Benchmark = strings.ToUpper(strings.TrimSpace(params.Benchmark))
	if params.DatePolicy == "" {
		params.DatePolicy = DatePolicyExact
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{Params: params}, nil
}

// Run studies every event against the market model.
//
// Per event, with t the event's index in the stock/benchmark aligned series
// and (a, b) the event window:
//   - estimation window [t-L-|a|, t-|a|) fits alpha and beta
//   - AR_k = R_k - (alpha + beta*Rm_k) for k in [t+a, t+b]
//   - CAR = sum of AR_k
//
// Events that cannot be studied are returned in Result.Skipped with a reason.
func (e *Engine) Run(events []model.Event, md *MarketData) (*Result, error) {
	if md == nil {
		return nil, fmt.Errorf("market data is nil")
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events")
	}
	bench, ok := md.Returns(e.Params.Benchmark)
	if !ok {
		return nil, fmt.Errorf("benchmark %s has no price data", e.Params.Benchmark)
	}

	started := time.Now()
	defer func() { e.Metrics.ObserveStudy(time.Since(started)) }()

	res := &Result{Params: e.Params}

	// Process in date order per ticker so overlap checks see earlier events first.
	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := events[order[i]], events[order[j]]
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		return a.EventDate.Before(b.EventDate)
	})

	alignedByTicker := map[string]aligned{}
	lastWindowEnd := map[string]int{}

	studied := make([]EventResult, 0, len(events))
	for _, i := range order {
		ev := events[i]
		ev.Ticker = strings.ToUpper(strings.TrimSpace(ev.Ticker))

		if err := ev.Validate(); err != nil {
			res.skip(e, ev, SkipInvalidEvent, err.Error())
			continue
		}
		stock, ok := md.Returns(ev.Ticker)
		if !ok {
			res.skip(e, ev, SkipMissingTicker, "no price data for "+ev.Ticker)
			continue
		}

		a, ok := alignedByTicker[ev.Ticker]
		if !ok {
			a = align(stock, bench)
			alignedByTicker[ev.Ticker] = a
		}

		er, reason, detail := e.studyEvent(ev, a, lastWindowEnd)
		if reason != "" {
			res.skip(e, ev, reason, detail)
			continue
		}
		er.Index = i
		studied = append(studied, er)
		e.Metrics.EventOutcome("ok")
	}

	// Report in the caller's event order.
	sort.SliceStable(studied, func(i, j int) bool { return studied[i].Index < studied[j].Index })
	res.Events = studied

	log.WithFields(log.Fields{
		"benchmark":    e.Params.Benchmark,
		"event_window": e.Params.EventWindow.String(),
		"estimation":   e.Params.EstimationWindow,
		"studied":      len(res.Events),
		"skipped":      len(res.Skipped),
	}).Info("eventstudy: run complete")
	return res, nil
}

func (e *Engine) studyEvent(ev model.Event, a aligned, lastWindowEnd map[string]int) (EventResult, SkipReason, string) {
	p := e.Params
	idx, ok := a.locate(ev.EventDate, p.DatePolicy)
	if !ok {
		return EventResult{}, SkipNotTradingDay, fmt.Sprintf("%s is not a trading day for %s", ev.EventDate.Format("2006-01-02"), ev.Ticker)
	}

	lead := p.EventWindow.Lead()
	estStart := idx - p.EstimationWindow - lead
	estEnd := idx - lead
	if estStart < 0 {
		return EventResult{}, SkipInsufficientHistory, fmt.Sprintf("need %d trading days before the event window, have %d", p.EstimationWindow, max(estEnd, 0))
	}

	winStart := idx + p.EventWindow.Start
	winEnd := idx + p.EventWindow.End
	if winStart < 0 || winEnd >= len(a.Dates) {
		return EventResult{}, SkipIncompleteEventWindow, fmt.Sprintf("event window %s runs past available data", p.EventWindow)
	}

	if p.ExcludeOverlapping {
		if prev, seen := lastWindowEnd[ev.Ticker]; seen && winStart <= prev {
			return EventResult{}, SkipConfounded, fmt.Sprintf("window overlaps an earlier %s event ending %s", ev.Ticker, a.Dates[prev].Format("2006-01-02"))
		}
	}

	mm, err := fitMarketModel(a.Market[estStart:estEnd], a.Stock[estStart:estEnd])
	if err != nil {
		return EventResult{}, SkipDegenerateRegression, err.Error()
	}

	er := EventResult{
		Ticker:       ev.Ticker,
		TrialID:      ev.TrialID,
		CatalystType: ev.CatalystType,
		QualityScore: ev.QualityScore,
		EventDate:    ev.EventDate,
		TradingDate:  a.Dates[idx],
		Model:        mm,
		Days:         make([]AbnormalDay, 0, p.EventWindow.Len()),
	}
	cum := 0.0
	for k := winStart; k <= winEnd; k++ {
		expected := mm.Expected(a.Market[k])
		ar := a.Stock[k] - expected
		cum += ar
		er.RealReturn += a.Stock[k]
		er.MarketReturn += a.Market[k]
		er.Days = append(er.Days, AbnormalDay{
			RelDay:       k - idx,
			Date:         a.Dates[k],
			Return:       a.Stock[k],
			MarketReturn: a.Market[k],
			Expected:     expected,
			Abnormal:     ar,
			CumAbnormal:  cum,
		})
	}
	er.CAR = cum
	if mm.ResidualStd > 0 {
		er.CARTStat = er.CAR / (mm.ResidualStd * math.Sqrt(float64(len(er.Days))))
	}

	lastWindowEnd[ev.Ticker] = winEnd
	return er, "", ""
}

func (r *Result) skip(e *Engine, ev model.Event, reason SkipReason, detail string) {
	r.Skipped = append(r.Skipped, SkippedEvent{Event: ev, Reason: reason, Detail: detail})
	e.Metrics.EventOutcome(string(reason))
	log.WithFields(log.Fields{
		"ticker":     ev.Ticker,
		"event_date": ev.EventDate.Format("2006-01-02"),
		"reason":     reason,
	}).Debug("eventstudy: skipped event")
}
