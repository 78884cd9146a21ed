package eventstudy

import (
	"fmt"
	"time"

	"biotech-event-study/internal/model"
	"biotech-event-study/internal/strategy"
)

// Trade is one position taken over an event window.
type Trade struct {
	Index        int                `json:"index"`
	Ticker       string             `json:"ticker"`
	EventDate    time.Time          `json:"event_date"`
	QualityScore model.QualityScore `json:"quality_score"`
	Position     model.Position     `json:"position"`

	// Return is the signed log return over the window; Abnormal is the
	// signed CAR, i.e. the part not explained by the benchmark.
	Return      float64 `json:"return"`
	Abnormal    float64 `json:"abnormal"`
	CumReturn   float64 `json:"cum_return"`
	CumAbnormal float64 `json:"cum_abnormal"`
}

type BacktestResult struct {
	Strategy      string  `json:"strategy"`
	Trades        []Trade `json:"trades"`
	NTrades       int     `json:"n_trades"`
	TotalReturn   float64 `json:"total_return"`
	TotalAbnormal float64 `json:"total_abnormal"`
	MeanAbnormal  float64 `json:"mean_abnormal"`
	HitRate       float64 `json:"hit_rate"`
}

// Backtest applies strat to each studied event in order. FLAT decisions are
// recorded as zero-return trades and excluded from NTrades and HitRate.
func Backtest(res *Result, strat strategy.Strategy) (*BacktestResult, error) {
	if res == nil {
		return nil, fmt.Errorf("result is nil")
	}
	if strat == nil {
		return nil, fmt.Errorf("strategy is nil")
	}

	out := &BacktestResult{
		Strategy: strat.Name(),
		Trades:   make([]Trade, 0, len(res.Events)),
	}
	hits := 0
	for i, er := range res.Events {
		pos := strat.Decide(strategy.Context{
			Index: i,
			Event: model.Event{
				Ticker:       er.Ticker,
				EventDate:    er.EventDate,
				TrialID:      er.TrialID,
				CatalystType: er.CatalystType,
				QualityScore: er.QualityScore,
			},
			CAR:        er.CAR,
			RealReturn: er.RealReturn,
		})
		sign := pos.Sign()
		tr := Trade{
			Index:        i,
			Ticker:       er.Ticker,
			EventDate:    er.EventDate,
			QualityScore: er.QualityScore,
			Position:     pos,
			Return:       sign * er.RealReturn,
			Abnormal:     sign * er.CAR,
		}
		out.TotalReturn += tr.Return
		out.TotalAbnormal += tr.Abnormal
		tr.CumReturn = out.TotalReturn
		tr.CumAbnormal = out.TotalAbnormal
		out.Trades = append(out.Trades, tr)

		if pos == model.PositionFlat {
			continue
		}
		out.NTrades++
		if tr.Abnormal > 0 {
			hits++
		}
	}
	if out.NTrades > 0 {
		out.MeanAbnormal = out.TotalAbnormal / float64(out.NTrades)
		out.HitRate = float64(hits) / float64(out.NTrades)
	}
	return out, nil
}
