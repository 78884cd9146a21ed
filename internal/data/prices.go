package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"biotech-event-study/internal/model"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrNoPriceData is returned when a provider has no bars for a ticker.
	ErrNoPriceData = errors.New("no price data")
	// ErrInvalidTicker is returned for symbols that are not plain tickers.
	ErrInvalidTicker = errors.New("invalid ticker")
)

// PriceProvider loads daily adjusted closes for a ticker over [start, end].
type PriceProvider interface {
	Name() string
	Fetch(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error)
}

// PriceProviderError is a non-2xx response from an HTTP price source.
type PriceProviderError struct {
	Provider   string
	Ticker     string
	StatusCode int
	Message    string
}

func (e *PriceProviderError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Ticker, e.Message)
}

// CSVPriceProvider reads <Dir>/<TICKER>.csv files. Each file needs a Date
// column and an "Adj Close" or "Close" column.
type CSVPriceProvider struct {
	Dir string
}

func (p *CSVPriceProvider) Name() string { return "csv" }

func (p *CSVPriceProvider) Fetch(_ context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	if !model.ValidTicker(strings.ToUpper(ticker)) {
		return model.PriceSeries{}, fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	var path string
	for _, cand := range []string{strings.ToUpper(ticker), strings.ToLower(ticker)} {
		path = filepath.Join(p.Dir, cand+".csv")
		if _, err := os.Stat(path); err == nil {
			break
		}
	}
	if rel, err := filepath.Rel(p.Dir, path); err != nil || rel != filepath.Base(path) {
		return model.PriceSeries{}, fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.PriceSeries{}, fmt.Errorf("%w: %s (no file in %s)", ErrNoPriceData, ticker, p.Dir)
		}
		return model.PriceSeries{}, err
	}
	defer f.Close()

	series, err := ParsePriceCSV(f, ticker)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	return clip(series, start, end), nil
}

// ParsePriceCSV reads a Date + (Adj Close|Close) CSV. Rows with a blank or
// "null" close are skipped.
func ParsePriceCSV(r io.Reader, ticker string) (model.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("failed to read price header: %w", err)
	}
	cols := headerIndex(header)
	di, ok := cols["date"]
	if !ok {
		if len(header) == 1 && strings.Contains(strings.ToLower(header[0]), "no data") {
			return model.PriceSeries{}, fmt.Errorf("%w: %s", ErrNoPriceData, ticker)
		}
		return model.PriceSeries{}, fmt.Errorf("price csv: missing %q column", "Date")
	}
	ci, ok := cols["adj close"]
	if !ok {
		if ci, ok = cols["adj_close"]; !ok {
			if ci, ok = cols["close"]; !ok {
				return model.PriceSeries{}, fmt.Errorf("price csv: missing %q or %q column", "Adj Close", "Close")
			}
		}
	}

	series := model.PriceSeries{Ticker: strings.ToUpper(ticker)}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("price csv line %d: %w", line, err)
		}
		raw := field(rec, ci)
		if raw == "" || strings.EqualFold(raw, "null") {
			continue
		}
		date, err := ParseDate(field(rec, di))
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("price csv line %d: %w", line, err)
		}
		px, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.PriceSeries{}, fmt.Errorf("price csv line %d: invalid close %q", line, raw)
		}
		series.Bars = append(series.Bars, model.PriceBar{Date: date, Close: px})
	}
	series.Sort()
	if len(series.Bars) == 0 {
		return series, fmt.Errorf("%w: %s", ErrNoPriceData, ticker)
	}
	return series, nil
}

func clip(s model.PriceSeries, start, end time.Time) model.PriceSeries {
	if start.IsZero() && end.IsZero() {
		return s
	}
	lo := 0
	if !start.IsZero() {
		lo = sort.Search(len(s.Bars), func(i int) bool { return !s.Bars[i].Date.Before(start) })
	}
	hi := len(s.Bars)
	if !end.IsZero() {
		hi = sort.Search(len(s.Bars), func(i int) bool { return s.Bars[i].Date.After(end) })
	}
	if lo > hi {
		lo = hi
	}
	s.Bars = s.Bars[lo:hi]
	return s
}

// FetchAll loads every ticker with up to concurrency parallel requests.
// Per-ticker failures are returned in the second map so one delisted name
// does not sink the whole study.
func FetchAll(ctx context.Context, p PriceProvider, tickers []string, start, end time.Time, concurrency int) (map[string]model.PriceSeries, map[string]error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		sem    = make(chan struct{}, concurrency)
		series = make(map[string]model.PriceSeries, len(tickers))
		failed = make(map[string]error)
	)

	seen := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true

		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				failed[ticker] = ctx.Err()
				mu.Unlock()
				return
			}

			s, err := p.Fetch(ctx, ticker, start, end)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[ticker] = err
				log.WithError(err).WithFields(log.Fields{
					"ticker":   ticker,
					"provider": p.Name(),
				}).Warn("prices: fetch failed")
				return
			}
			s.Ticker = ticker
			series[ticker] = s
		}(t)
	}
	wg.Wait()

	log.WithFields(log.Fields{
		"provider": p.Name(),
		"loaded":   len(series),
		"failed":   len(failed),
	}).Info("prices: fetch complete")
	return series, failed
}
