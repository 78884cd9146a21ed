package eventstudy

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"biotech-event-study/internal/model"
)

// MarketData holds daily log returns per ticker.
type MarketData struct {
	series map[string]model.ReturnSeries
}

// NewMarketData converts price series into returns. Tickers whose prices
// cannot produce returns are reported in the error map and left out.
func NewMarketData(prices map[string]model.PriceSeries) (*MarketData, map[string]error) {
	md := &MarketData{series: make(map[string]model.ReturnSeries, len(prices))}
	failed := map[string]error{}
	for ticker, ps := range prices {
		ticker = strings.ToUpper(ticker)
		ps.Ticker = ticker
		// Series may come straight from a shared provider cache.
		ps.Bars = append([]model.PriceBar(nil), ps.Bars...)
		ps.Sort()
		rs, err := model.LogReturns(ps)
		if err != nil {
			failed[ticker] = err
			continue
		}
		if rs.Len() == 0 {
			failed[ticker] = fmt.Errorf("ticker %s: no valid returns", ticker)
			continue
		}
		md.series[ticker] = rs
	}
	return md, failed
}

func (m *MarketData) Has(ticker string) bool {
	if m == nil {
		return false
	}
	_, ok := m.series[strings.ToUpper(ticker)]
	return ok
}

func (m *MarketData) Tickers() []string {
	out := make([]string, 0, len(m.series))
	for t := range m.series {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (m *MarketData) Returns(ticker string) (model.ReturnSeries, bool) {
	rs, ok := m.series[strings.ToUpper(ticker)]
	return rs, ok
}

// aligned is a stock and benchmark return pair on their common dates.
type aligned struct {
	Dates  []time.Time
	Stock  []float64
	Market []float64
}

// align intersects two return series by date. A row is kept only when both
// returns cover the same pair of sessions: a bar missing on either side drops
// the day itself and the return spanning the gap, for this pair only.
func align(stock, market model.ReturnSeries) aligned {
	n := stock.Len()
	if market.Len() < n {
		n = market.Len()
	}
	out := aligned{
		Dates:  make([]time.Time, 0, n),
		Stock:  make([]float64, 0, n),
		Market: make([]float64, 0, n),
	}
	i, j := 0, 0
	for i < stock.Len() && j < market.Len() {
		a, b := stock.Dates[i], market.Dates[j]
		switch {
		case a.Equal(b):
			if !samePeriod(stock, i, market, j) {
				i++
				j++
				continue
			}
			out.Dates = append(out.Dates, a)
			out.Stock = append(out.Stock, stock.Returns[i])
			out.Market = append(out.Market, market.Returns[j])
			i++
			j++
		case a.Before(b):
			i++
		default:
			j++
		}
	}
	return out
}

// samePeriod reports whether both returns start on the same session. Series
// without Prev dates are taken to be gap-free.
func samePeriod(stock model.ReturnSeries, i int, market model.ReturnSeries, j int) bool {
	if i >= len(stock.Prev) || j >= len(market.Prev) {
		return true
	}
	return stock.Prev[i].Equal(market.Prev[j])
}

// locate finds the index of date. With exact policy the date must be a
// trading day in the series; with next it rolls forward.
func (a aligned) locate(date time.Time, policy DatePolicy) (int, bool) {
	date = model.DateOnly(date)
	idx := sort.Search(len(a.Dates), func(i int) bool { return !a.Dates[i].Before(date) })
	if idx >= len(a.Dates) {
		return 0, false
	}
	if policy == DatePolicyExact && !a.Dates[idx].Equal(date) {
		return 0, false
	}
	return idx, true
}
