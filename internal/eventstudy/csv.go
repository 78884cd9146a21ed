package eventstudy

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

func WriteResultsCSV(path string, events []EventResult) error {
	w, closeFn, err := createCSV(path)
	if err != nil {
		return err
	}
	defer closeFn()

	header := []string{
		"index",
		"ticker",
		"event_date",
		"trading_date",
		"trial_id",
		"catalyst_type",
		"quality_score",
		"alpha",
		"beta",
		"r_squared",
		"residual_std",
		"estimation_obs",
		"car",
		"car_t_stat",
		"real_return",
		"market_return",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range events {
		row := []string{
			strconv.Itoa(r.Index),
			r.Ticker,
			fmtDate(r.EventDate),
			fmtDate(r.TradingDate),
			r.TrialID,
			r.CatalystType,
			string(r.QualityScore),
			fmtFloat(r.Model.Alpha),
			fmtFloat(r.Model.Beta),
			fmtFloat(r.Model.RSquared),
			fmtFloat(r.Model.ResidualStd),
			strconv.Itoa(r.Model.N),
			fmtFloat(r.CAR),
			fmtFloat(r.CARTStat),
			fmtFloat(r.RealReturn),
			fmtFloat(r.MarketReturn),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteAbnormalReturnsCSV writes one row per event per window day.
func WriteAbnormalReturnsCSV(path string, events []EventResult) error {
	w, closeFn, err := createCSV(path)
	if err != nil {
		return err
	}
	defer closeFn()

	header := []string{
		"index",
		"ticker",
		"event_date",
		"rel_day",
		"date",
		"return",
		"market_return",
		"expected",
		"abnormal",
		"cum_abnormal",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range events {
		for _, d := range r.Days {
			row := []string{
				strconv.Itoa(r.Index),
				r.Ticker,
				fmtDate(r.EventDate),
				strconv.Itoa(d.RelDay),
				fmtDate(d.Date),
				fmtFloat(d.Return),
				fmtFloat(d.MarketReturn),
				fmtFloat(d.Expected),
				fmtFloat(d.Abnormal),
				fmtFloat(d.CumAbnormal),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

func WriteTradesCSV(path string, trades []Trade) error {
	w, closeFn, err := createCSV(path)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := w.Write([]string{"index", "ticker", "event_date", "quality_score", "position", "return", "abnormal", "cum_return", "cum_abnormal"}); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			strconv.Itoa(t.Index),
			t.Ticker,
			fmtDate(t.EventDate),
			string(t.QualityScore),
			string(t.Position),
			fmtFloat(t.Return),
			fmtFloat(t.Abnormal),
			fmtFloat(t.CumReturn),
			fmtFloat(t.CumAbnormal),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func createCSV(path string) (*csv.Writer, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return csv.NewWriter(f), func() { _ = f.Close() }, nil
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
