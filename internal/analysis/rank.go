package analysis

import (
	"sort"

	"biotech-event-study/internal/eventstudy"
)

type TickerRank struct {
	Rank     int     `json:"rank"`
	Ticker   string  `json:"ticker"`
	N        int     `json:"n"`
	MeanCAR  float64 `json:"mean_car"`
	TotalCAR float64 `json:"total_car"`
	BestCAR  float64 `json:"best_car"`
	WorstCAR float64 `json:"worst_car"`
	HitRate  float64 `json:"hit_rate"`
}

// RankTickers aggregates CARs per ticker and sorts descending by mean CAR.
// Ties break on ticker so the order is stable across runs.
func RankTickers(events []eventstudy.EventResult) []TickerRank {
	byTicker := map[string]*TickerRank{}
	hits := map[string]int{}
	for _, e := range events {
		r, ok := byTicker[e.Ticker]
		if !ok {
			r = &TickerRank{Ticker: e.Ticker, BestCAR: e.CAR, WorstCAR: e.CAR}
			byTicker[e.Ticker] = r
		}
		r.N++
		r.TotalCAR += e.CAR
		if e.CAR > r.BestCAR {
			r.BestCAR = e.CAR
		}
		if e.CAR < r.WorstCAR {
			r.WorstCAR = e.CAR
		}
		if e.CAR > 0 {
			hits[e.Ticker]++
		}
	}

	out := make([]TickerRank, 0, len(byTicker))
	for t, r := range byTicker {
		r.MeanCAR = r.TotalCAR / float64(r.N)
		r.HitRate = float64(hits[t]) / float64(r.N)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MeanCAR != out[j].MeanCAR {
			return out[i].MeanCAR > out[j].MeanCAR
		}
		return out[i].Ticker < out[j].Ticker
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
