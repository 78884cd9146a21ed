package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"biotech-event-study/internal/metrics"
	"biotech-event-study/internal/model"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultClinicalTrialsURL = "https://clinicaltrials.gov"
	maxPageSize              = 1000
	sourceClinicalTrials     = "clinicaltrials"
)

// DefaultStatuses are the overall statuses queried when none are given.
var DefaultStatuses = []string{"COMPLETED", "ACTIVE_NOT_RECRUITING", "RECRUITING"}

// ClinicalTrialsClient fetches studies from the ClinicalTrials.gov v2 API.
type ClinicalTrialsClient struct {
	BaseURL string
	Client  *http.Client
	Cache   *ResponseCache[[]model.Trial]
	Metrics *metrics.Metrics
}

// NewClinicalTrialsClient creates a client. An empty baseURL defaults to
// https://clinicaltrials.gov; a zero timeout defaults to 30s.
func NewClinicalTrialsClient(baseURL string, timeout time.Duration) *ClinicalTrialsClient {
	if baseURL == "" {
		baseURL = DefaultClinicalTrialsURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClinicalTrialsClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// SearchParams selects trials.
type SearchParams struct {
	Condition  string   `json:"condition"`             // disease area, e.g. "oncology"
	Phase      string   `json:"phase,omitempty"`       // PHASE1..PHASE4, optional
	Statuses   []string `json:"statuses,omitempty"`    // overall statuses; DefaultStatuses when empty
	MaxResults int      `json:"max_results,omitempty"` // total trials across pages (default 100)
}

func (p SearchParams) withDefaults() SearchParams {
	if len(p.Statuses) == 0 {
		p.Statuses = DefaultStatuses
	}
	if p.MaxResults <= 0 {
		p.MaxResults = 100
	}
	p.Phase = strings.ToUpper(strings.TrimSpace(p.Phase))
	return p
}

func (p SearchParams) Validate() error {
	if strings.TrimSpace(p.Condition) == "" {
		return fmt.Errorf("condition is required")
	}
	if p.Phase != "" && !validPhase(p.Phase) {
		return fmt.Errorf("invalid phase %q (expected EARLY_PHASE1, PHASE1..PHASE4, NA)", p.Phase)
	}
	return nil
}

func validPhase(p string) bool {
	switch p {
	case "EARLY_PHASE1", "PHASE1", "PHASE2", "PHASE3", "PHASE4", "NA":
		return true
	}
	return false
}

// ClinicalTrialsError represents a non-2xx response from ClinicalTrials.gov.
type ClinicalTrialsError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // For rate limit errors
}

func (e *ClinicalTrialsError) Error() string {
	return e.Message
}

// SearchStudies fetches trials page by page until MaxResults are collected
// or the API stops returning a nextPageToken.
func (c *ClinicalTrialsClient) SearchStudies(ctx context.Context, params SearchParams) ([]model.Trial, error) {
	params = params.withDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}

	cacheKey := CacheKey(params.Condition, params.Phase, strings.Join(params.Statuses, ","), params.MaxResults)
	if cached, ok := c.Cache.Get(cacheKey); ok {
		c.Metrics.CacheHit(sourceClinicalTrials)
		log.WithFields(log.Fields{
			"condition": params.Condition,
			"phase":     params.Phase,
			"trials":    len(cached),
		}).Debug("clinicaltrials: cache hit")
		return append([]model.Trial(nil), cached...), nil
	}

	log.WithFields(log.Fields{
		"condition":   params.Condition,
		"phase":       params.Phase,
		"max_results": params.MaxResults,
	}).Info("clinicaltrials: fetching trials")

	trials := make([]model.Trial, 0, params.MaxResults)
	pageToken := ""
	for len(trials) < params.MaxResults {
		pageSize := params.MaxResults - len(trials)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		page, err := c.fetchPage(ctx, params, pageSize, pageToken)
		if err != nil {
			return nil, err
		}
		for _, s := range page.Studies {
			trials = append(trials, s.toTrial())
		}
		if page.NextPageToken == "" || len(page.Studies) == 0 {
			break
		}
		pageToken = page.NextPageToken
	}
	if len(trials) > params.MaxResults {
		trials = trials[:params.MaxResults]
	}

	log.WithFields(log.Fields{
		"condition": params.Condition,
		"phase":     params.Phase,
		"trials":    len(trials),
	}).Info("clinicaltrials: retrieved trials")

	c.Cache.Set(cacheKey, trials)
	return trials, nil
}

func (c *ClinicalTrialsClient) fetchPage(ctx context.Context, params SearchParams, pageSize int, pageToken string) (*studiesResponse, error) {
	u, err := url.Parse(c.BaseURL + "/api/v2/studies")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("query.cond", params.Condition)
	if params.Phase != "" {
		q.Set("filter.advanced", fmt.Sprintf("AREA[Phase]%s", params.Phase))
	}
	q.Set("filter.overallStatus", strings.Join(params.Statuses, ","))
	q.Set("pageSize", fmt.Sprintf("%d", pageSize))
	q.Set("format", "json")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.Metrics.ObserveUpstream(sourceClinicalTrials, "error", duration)
		log.WithError(err).WithField("duration", duration).Warn("clinicaltrials: request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.Metrics.ObserveUpstream(sourceClinicalTrials, fmt.Sprintf("%d", resp.StatusCode), duration)
	log.WithFields(log.Fields{
		"status":     resp.StatusCode,
		"duration":   duration,
		"page_token": pageToken,
	}).Debug("clinicaltrials: response")

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		return nil, &ClinicalTrialsError{
			StatusCode: resp.StatusCode,
			Code:       "BAD_REQUEST",
			Message:    "ClinicalTrials.gov rejected the query parameters",
		}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		log.WithField("retry_after", retryAfter).Warn("clinicaltrials: rate limited")
		return nil, &ClinicalTrialsError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return nil, &ClinicalTrialsError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}

	var page studiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &page, nil
}
