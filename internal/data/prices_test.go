package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestParsePriceCSVPrefersAdjClose(t *testing.T) {
	in := `Date,Open,High,Low,Close,Adj Close,Volume
2024-01-03,1,1,1,10.5,10.0,100
2024-01-02,1,1,1,9.5,9.0,100
2024-01-04,1,1,1,null,null,0
`
	s, err := ParsePriceCSV(strings.NewReader(in), "abc")
	require.NoError(t, err)
	assert.Equal(t, "ABC", s.Ticker)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, date("2024-01-02"), s.Bars[0].Date)
	assert.Equal(t, 9.0, s.Bars[0].Close)
}

func TestParsePriceCSVNoData(t *testing.T) {
	_, err := ParsePriceCSV(strings.NewReader("No data\n"), "zzz")
	assert.True(t, errors.Is(err, ErrNoPriceData))
}

func TestCSVPriceProvider(t *testing.T) {
	dir := t.TempDir()
	csv := "Date,Close\n2024-01-02,1\n2024-01-03,2\n2024-01-04,3\n2024-01-05,4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "XBI.csv"), []byte(csv), 0o644))

	p := &CSVPriceProvider{Dir: dir}
	s, err := p.Fetch(context.Background(), "xbi", date("2024-01-03"), date("2024-01-04"))
	require.NoError(t, err)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, 2.0, s.Bars[0].Close)
	assert.Equal(t, 3.0, s.Bars[1].Close)

	_, err = p.Fetch(context.Background(), "NOPE", time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, ErrNoPriceData))
}

func TestCSVPriceProviderRejectsPathTickers(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "prices")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "SECRET.csv"), []byte("Date,Close\n2024-01-02,1\n"), 0o644))

	p := &CSVPriceProvider{Dir: dir}
	for _, ticker := range []string{"../SECRET", "..", "a/b", `a\b`, "", ".ABC"} {
		_, err := p.Fetch(context.Background(), ticker, time.Time{}, time.Time{})
		assert.ErrorIs(t, err, ErrInvalidTicker, ticker)
	}
}

func TestFetchAllCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AAA.csv"), []byte("Date,Close\n2024-01-02,1\n2024-01-03,2\n"), 0o644))

	series, failed := FetchAll(context.Background(), &CSVPriceProvider{Dir: dir}, []string{"aaa", "AAA", "BBB", " "}, time.Time{}, time.Time{}, 2)
	require.Len(t, series, 1)
	assert.Len(t, series["AAA"].Bars, 2)
	require.Len(t, failed, 1)
	assert.Contains(t, failed, "BBB")
}

func TestStooqClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/q/d/l/", r.URL.Path)
		assert.Equal(t, "d", r.URL.Query().Get("i"))
		assert.Equal(t, "20240101", r.URL.Query().Get("d1"))
		switch r.URL.Query().Get("s") {
		case "itci.us":
			_, _ = w.Write([]byte("Date,Open,High,Low,Close,Volume\n2024-01-02,1,1,1,50,10\n2024-01-03,1,1,1,51,10\n"))
		case "down.us":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte("No data"))
		}
	}))
	defer srv.Close()

	c := NewStooqClient(srv.URL, time.Second)
	s, err := c.Fetch(context.Background(), "ITCI", date("2024-01-01"), date("2024-02-01"))
	require.NoError(t, err)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, 51.0, s.Bars[1].Close)

	_, err = c.Fetch(context.Background(), "GONE", date("2024-01-01"), date("2024-02-01"))
	assert.True(t, errors.Is(err, ErrNoPriceData))

	_, err = c.Fetch(context.Background(), "DOWN", date("2024-01-01"), date("2024-02-01"))
	var pErr *PriceProviderError
	require.True(t, errors.As(err, &pErr))
	assert.Equal(t, http.StatusServiceUnavailable, pErr.StatusCode)
}

func TestSyntheticMarket(t *testing.T) {
	m := &SyntheticMarket{
		Benchmark: "XBI",
		Start:     date("2024-01-01"),
		Days:      40,
		Seed:      7,
		NoiseVol:  0.01,
		Tickers: map[string]SyntheticTicker{
			"ABC": {Beta: 1.2, Shocks: map[string]float64{"2024-01-15": 0.2}},
		},
	}
	days := m.TradingDays()
	require.Len(t, days, 40)
	for _, d := range days {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}

	ctx := context.Background()
	a, err := m.Fetch(ctx, "abc", time.Time{}, time.Time{})
	require.NoError(t, err)
	b, err := m.Fetch(ctx, "ABC", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 100.0, a.Bars[0].Close)

	clipped, err := m.Fetch(ctx, "XBI", date("2024-01-08"), date("2024-01-12"))
	require.NoError(t, err)
	assert.Len(t, clipped.Bars, 5)

	_, err = m.Fetch(ctx, "NOPE", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrNoPriceData)
	_, err = m.Fetch(ctx, "XBI", date("2030-01-01"), date("2030-02-01"))
	assert.ErrorIs(t, err, ErrNoPriceData)
}
