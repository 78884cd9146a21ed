package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"biotech-event-study/internal/api/models"
	"biotech-event-study/internal/data"
	"biotech-event-study/internal/pipeline"
	"biotech-event-study/internal/scoring"

	"github.com/gin-gonic/gin"
)

// TrialsHandler runs the ClinicalTrials.gov pipeline and serves the sponsor map.
// The sponsor map is read per request so edits to the CSV apply without a restart.
type TrialsHandler struct {
	source         pipeline.TrialSource
	sponsorMapFile string
	scorer         *scoring.Scorer
}

// NewTrialsHandler creates a new trials handler
func NewTrialsHandler(source pipeline.TrialSource, sponsorMapFile string, scorer *scoring.Scorer) *TrialsHandler {
	return &TrialsHandler{source: source, sponsorMapFile: sponsorMapFile, scorer: scorer}
}

// SearchTrials handles POST /api/v1/trials/search
func (h *TrialsHandler) SearchTrials(c *gin.Context) {
	var req models.TrialSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	opts := pipeline.Options{
		Query: data.SearchParams{
			Condition:  req.Condition,
			Phase:      req.Phase,
			Statuses:   req.Statuses,
			MaxResults: req.MaxResults,
		},
		Historical: req.Historical,
		DaysAhead:  req.DaysAhead,
	}
	opts.Query.Phase = strings.ToUpper(strings.TrimSpace(opts.Query.Phase))
	if opts.Query.Phase == "" {
		opts.Query.Phase = "PHASE3"
	}
	if err := opts.Query.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	var err error
	if opts.From, opts.To, err = parseRange(models.PriceRange{Start: req.From, End: req.To}); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_DATE", strings.ReplaceAll(err.Error(), "prices.", ""), nil)
		return
	}

	sponsors, err := data.LoadSponsorMap(h.sponsorMapFile)
	if err != nil {
		respondUpstreamError(c, err, "SPONSOR_MAP_ERROR")
		return
	}

	res, err := pipeline.New(h.source, sponsors, h.scorer).Run(c.Request.Context(), opts)
	if err != nil {
		respondUpstreamError(c, err, "PIPELINE_ERROR")
		return
	}

	c.JSON(http.StatusOK, models.TrialSearchResponse{
		TrialsFetched:     len(res.Trials),
		TrialsMatched:     len(res.Matched),
		Selected:          res.Selected,
		Events:            res.Events,
		UnmatchedSponsors: res.Unmatched,
	})
}

// ListSponsors handles GET /api/v1/sponsors
// With mapped=true only sponsors that have a ticker are returned.
func (h *TrialsHandler) ListSponsors(c *gin.Context) {
	mappedOnly, _ := strconv.ParseBool(c.Query("mapped"))

	sponsors, err := data.LoadSponsorMap(h.sponsorMapFile)
	if err != nil {
		respondUpstreamError(c, err, "SPONSOR_MAP_ERROR")
		return
	}

	out := []models.SponsorInfo{}
	for _, e := range sponsors.Entries() {
		if mappedOnly && e.Ticker == "" {
			continue
		}
		out = append(out, models.SponsorInfo{Sponsor: e.Sponsor, Ticker: e.Ticker})
	}
	c.JSON(http.StatusOK, gin.H{
		"sponsors": out,
		"count":    len(out),
	})
}
