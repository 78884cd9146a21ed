package data

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"biotech-event-study/internal/model"
)

// SyntheticTicker follows R = Alpha + Beta*Rm + noise. Shocks adds a log
// return on the given dates (YYYY-MM-DD).
type SyntheticTicker struct {
	Alpha  float64
	Beta   float64
	Shocks map[string]float64
}

// SyntheticMarket is a deterministic PriceProvider for demos and tests.
// Every series starts at 100 on Start and runs for Days weekdays.
// MarketVol defaults to 1.5% daily; NoiseVol may be zero.
type SyntheticMarket struct {
	Benchmark string
	Start     time.Time
	Days      int
	Seed      int64
	MarketVol float64
	NoiseVol  float64
	Tickers   map[string]SyntheticTicker
}

func (m *SyntheticMarket) Name() string { return "synthetic" }

// TradingDays lists the weekdays the market covers.
func (m *SyntheticMarket) TradingDays() []time.Time {
	out := make([]time.Time, 0, m.Days)
	for d := model.DateOnly(m.Start); len(out) < m.Days; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (m *SyntheticMarket) Fetch(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, err
	}
	ticker = strings.ToUpper(ticker)
	days := m.TradingDays()
	market := m.marketReturns(len(days))

	var rets []float64
	if ticker == strings.ToUpper(m.Benchmark) {
		rets = market
	} else {
		spec, ok := m.Tickers[ticker]
		if !ok {
			return model.PriceSeries{}, fmt.Errorf("%w: %s", ErrNoPriceData, ticker)
		}
		rng := rand.New(rand.NewSource(m.Seed ^ tickerSeed(ticker)))
		rets = make([]float64, len(days))
		for i := 1; i < len(days); i++ {
			rets[i] = spec.Alpha + spec.Beta*market[i] + m.NoiseVol*rng.NormFloat64()
			rets[i] += spec.Shocks[days[i].Format("2006-01-02")]
		}
	}

	series := model.PriceSeries{Ticker: ticker, Bars: make([]model.PriceBar, len(days))}
	px := 100.0
	for i, d := range days {
		px *= math.Exp(rets[i])
		series.Bars[i] = model.PriceBar{Date: d, Close: px}
	}
	series = clip(series, start, end)
	if len(series.Bars) == 0 {
		return series, fmt.Errorf("%w: %s", ErrNoPriceData, ticker)
	}
	return series, nil
}

// marketReturns draws benchmark log returns; index 0 is the base day.
func (m *SyntheticMarket) marketReturns(n int) []float64 {
	vol := m.MarketVol
	if vol <= 0 {
		vol = 0.015
	}
	rng := rand.New(rand.NewSource(m.Seed))
	out := make([]float64, n)
	for i := 1; i < n; i++ {
		out[i] = 0.0003 + vol*rng.NormFloat64()
	}
	return out
}

func tickerSeed(ticker string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(ticker))
	return int64(h.Sum64())
}
