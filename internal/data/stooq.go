package data

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"biotech-event-study/internal/metrics"
	"biotech-event-study/internal/model"
)

const (
	DefaultStooqURL = "https://stooq.com"
	sourceStooq     = "stooq"
)

// StooqClient downloads daily split-adjusted closes from stooq.com.
// US listings use the ".us" suffix (ITCI -> itci.us).
type StooqClient struct {
	BaseURL string
	Suffix  string
	Client  *http.Client
	Cache   *ResponseCache[model.PriceSeries]
	Metrics *metrics.Metrics
}

func NewStooqClient(baseURL string, timeout time.Duration) *StooqClient {
	if baseURL == "" {
		baseURL = DefaultStooqURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StooqClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Suffix:  ".us",
		Client:  &http.Client{Timeout: timeout},
	}
}

func (c *StooqClient) Name() string { return sourceStooq }

func (c *StooqClient) Fetch(ctx context.Context, ticker string, start, end time.Time) (model.PriceSeries, error) {
	if start.IsZero() || end.IsZero() {
		return model.PriceSeries{}, fmt.Errorf("start and end are required")
	}
	if start.After(end) {
		return model.PriceSeries{}, fmt.Errorf("start must be before end")
	}

	key := CacheKey(sourceStooq, ticker, start.Format("20060102"), end.Format("20060102"))
	if cached, ok := c.Cache.Get(key); ok {
		c.Metrics.CacheHit(sourceStooq)
		cached.Bars = append([]model.PriceBar(nil), cached.Bars...)
		return cached, nil
	}

	u, err := url.Parse(c.BaseURL + "/q/d/l/")
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("s", strings.ToLower(ticker)+c.Suffix)
	q.Set("d1", start.Format("20060102"))
	q.Set("d2", end.Format("20060102"))
	q.Set("i", "d")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("failed to create request: %w", err)
	}

	began := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		c.Metrics.ObserveUpstream(sourceStooq, "error", time.Since(began))
		return model.PriceSeries{}, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	c.Metrics.ObserveUpstream(sourceStooq, fmt.Sprintf("%d", resp.StatusCode), time.Since(began))

	if resp.StatusCode != http.StatusOK {
		return model.PriceSeries{}, &PriceProviderError{
			Provider:   sourceStooq,
			Ticker:     ticker,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	series, err := ParsePriceCSV(resp.Body, ticker)
	if err != nil {
		// Stooq answers unknown symbols with 200 and a "No data" body.
		return model.PriceSeries{}, fmt.Errorf("%s %s: %w", sourceStooq, ticker, err)
	}
	series = clip(series, start, end)
	c.Cache.Set(key, series)
	return series, nil
}
