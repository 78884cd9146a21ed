package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"biotech-event-study/internal/analysis"
	"biotech-event-study/internal/api/models"
	"biotech-event-study/internal/data"
	"biotech-event-study/internal/eventstudy"
	"biotech-event-study/internal/model"
	"biotech-event-study/internal/store"
	"biotech-event-study/internal/strategy"
	"biotech-event-study/internal/study"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// StudyHandler handles event-study requests
type StudyHandler struct {
	runner *study.Runner
	store  store.RunStore
}

// NewStudyHandler creates a new study handler
func NewStudyHandler(runner *study.Runner, runs store.RunStore) *StudyHandler {
	return &StudyHandler{runner: runner, store: runs}
}

// RunStudy handles POST /api/v1/studies
func (h *StudyHandler) RunStudy(c *gin.Context) {
	var req models.StudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}

	events, err := eventsFromRequest(req.Events, req.EventsCSV)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_EVENTS", err.Error(), nil)
		return
	}
	params, err := validParams(mergeParams(eventstudy.DefaultParams(), req.Params))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_PARAMS", err.Error(), nil)
		return
	}
	if _, err := strategy.Build(req.Strategy.Name, req.Strategy.Params); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_STRATEGY", err.Error(), map[string]interface{}{
			"available": strategy.Names(),
		})
		return
	}
	start, end, err := parseRange(req.Prices)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_DATE", err.Error(), nil)
		return
	}

	out, err := h.runner.Run(c.Request.Context(), study.Request{
		Events:         events,
		Params:         params,
		Strategy:       req.Strategy.Name,
		StrategyParams: req.Strategy.Params,
		Start:          start,
		End:            end,
	})
	if err != nil {
		respondUpstreamError(c, err, "STUDY_ERROR")
		return
	}

	rec := &store.RunRecord{
		Name:     req.Name,
		Params:   out.Result.Params,
		Summary:  out.Summary,
		Result:   out.Result,
		Backtest: out.Backtest,
	}
	if req.Options.DryRun {
		rec.CreatedAt = time.Now().UTC()
	} else if err := h.store.Save(c.Request.Context(), rec); err != nil {
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error(), nil)
		return
	}

	log.WithFields(log.Fields{
		"run_id":     rec.ID,
		"request_id": c.GetString("request_id"),
		"events":     len(out.Result.Events),
		"skipped":    len(out.Result.Skipped),
	}).Info("study completed")

	resp := buildStudyResponse(rec, req.Options.IncludeDays)
	resp.CAAR = out.CAAR
	resp.FailedTickers = out.FailedTickers
	c.JSON(http.StatusOK, resp)
}

// ListStudies handles GET /api/v1/studies
func (h *StudyHandler) ListStudies(c *gin.Context) {
	var req models.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	runs, err := h.store.List(c.Request.Context(), req.Limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error(), nil)
		return
	}

	items := make([]models.StudyListItem, len(runs))
	for i, r := range runs {
		items[i] = models.StudyListItem{
			ID:        r.ID.String(),
			Name:      r.Name,
			CreatedAt: r.CreatedAt,
			Params:    r.Params,
			NEvents:   r.Summary.All.N,
			MeanCAR:   r.Summary.All.MeanCAR,
		}
	}
	c.JSON(http.StatusOK, gin.H{"studies": items, "count": len(items)})
}

// GetStudy handles GET /api/v1/studies/:id
func (h *StudyHandler) GetStudy(c *gin.Context) {
	rec, ok := h.loadRun(c)
	if !ok {
		return
	}
	includeDays, _ := strconv.ParseBool(c.Query("include_days"))
	resp := buildStudyResponse(rec, includeDays)
	if rec.Result != nil {
		resp.CAAR = analysis.CAAR(rec.Result.Events)
	}
	c.JSON(http.StatusOK, resp)
}

// RankStudy handles GET /api/v1/studies/:id/rank
func (h *StudyHandler) RankStudy(c *gin.Context) {
	var req models.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	rec, ok := h.loadRun(c)
	if !ok {
		return
	}

	var ranked []analysis.TickerRank
	if rec.Result != nil {
		ranked = analysis.RankTickers(rec.Result.Events)
	}
	if req.Limit > 0 && req.Limit < len(ranked) {
		ranked = ranked[:req.Limit]
	}
	c.JSON(http.StatusOK, models.RankResponse{
		StudyID: rec.ID.String(),
		Tickers: ranked,
		Count:   len(ranked),
	})
}

// CompareStudies handles POST /api/v1/studies/compare
func (h *StudyHandler) CompareStudies(c *gin.Context) {
	var req models.CompareStudiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
		return
	}
	events, err := eventsFromRequest(req.Events, req.EventsCSV)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_EVENTS", err.Error(), nil)
		return
	}
	if _, err := strategy.Build(req.Strategy.Name, req.Strategy.Params); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_STRATEGY", err.Error(), nil)
		return
	}

	base := mergeParams(eventstudy.DefaultParams(), req.BaseParams)
	variations := make([]study.Variation, len(req.Variations))
	for i, v := range req.Variations {
		variations[i] = study.Variation{Name: v.Name, Params: mergeParams(base, v.Params)}
	}

	outcomes, err := h.runner.Compare(c.Request.Context(), events, req.Strategy.Name, req.Strategy.Params, variations)
	if err != nil {
		respondUpstreamError(c, err, "STUDY_ERROR")
		return
	}

	comparison := make([]models.ComparisonResult, len(outcomes))
	for i, o := range outcomes {
		comparison[i] = models.ComparisonResult{Name: o.Name, Params: variations[i].Params}
		if o.Err != nil {
			comparison[i].Error = o.Err.Error()
			continue
		}
		comparison[i].Params = o.Outcome.Result.Params
		comparison[i].Summary = &o.Outcome.Summary
		comparison[i].Backtest = toBacktestSummary(o.Outcome.Backtest)
	}
	c.JSON(http.StatusOK, models.CompareStudiesResponse{Comparison: comparison})
}

// Helper methods

func (h *StudyHandler) loadRun(c *gin.Context) (*store.RunRecord, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "id must be a UUID", nil)
		return nil, false
	}
	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			respondError(c, http.StatusNotFound, "STUDY_NOT_FOUND", fmt.Sprintf("study %s not found", id), nil)
			return nil, false
		}
		respondError(c, http.StatusInternalServerError, "STORE_ERROR", err.Error(), nil)
		return nil, false
	}
	return rec, true
}

func eventsFromRequest(inputs []models.EventInput, csvText string) ([]model.Event, error) {
	events := make([]model.Event, 0, len(inputs))
	for i, in := range inputs {
		d, err := data.ParseDate(in.EventDate)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		q, err := model.ParseQualityScore(in.QualityScore)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		events = append(events, model.Event{
			Ticker:       strings.ToUpper(strings.TrimSpace(in.Ticker)),
			EventDate:    d,
			TrialID:      in.TrialID,
			CatalystType: in.CatalystType,
			QualityScore: q,
		})
	}
	if strings.TrimSpace(csvText) != "" {
		parsed, err := data.ReadEvents(strings.NewReader(csvText))
		if err != nil {
			return nil, fmt.Errorf("events_csv: %w", err)
		}
		events = append(events, parsed...)
	}
	if len(events) == 0 {
		return nil, errors.New("at least one event is required (events or events_csv)")
	}
	for i, e := range events {
		if !model.ValidTicker(e.Ticker) {
			return nil, fmt.Errorf("events[%d]: invalid ticker %q", i, e.Ticker)
		}
	}
	return events, nil
}

// mergeParams overlays the non-zero fields of override onto base.
func mergeParams(base eventstudy.Params, override models.StudyParams) eventstudy.Params {
	out := base
	if override.Benchmark != "" {
		out.Benchmark = override.Benchmark
	}
	if override.EstimationWindow != 0 {
		out.EstimationWindow = override.EstimationWindow
	}
	if override.EventWindow != nil {
		out.EventWindow = *override.EventWindow
	}
	if override.DatePolicy != "" {
		out.DatePolicy = eventstudy.DatePolicy(strings.ToLower(override.DatePolicy))
	}
	if override.ExcludeOverlapping != nil {
		out.ExcludeOverlapping = *override.ExcludeOverlapping
	}
	return out
}

func validParams(p eventstudy.Params) (eventstudy.Params, error) {
	e, err := eventstudy.New(p)
	if err != nil {
		return p, err
	}
	return e.Params, nil
}

func parseRange(r models.PriceRange) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if r.Start != "" {
		if start, err = data.ParseDate(r.Start); err != nil {
			return start, end, fmt.Errorf("prices.start: %w", err)
		}
	}
	if r.End != "" {
		if end, err = data.ParseDate(r.End); err != nil {
			return start, end, fmt.Errorf("prices.end: %w", err)
		}
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return start, end, errors.New("prices.start must be before prices.end")
	}
	return start, end, nil
}

func buildStudyResponse(rec *store.RunRecord, includeDays bool) models.StudyResponse {
	resp := models.StudyResponse{
		ID:        rec.ID.String(),
		Name:      rec.Name,
		Status:    "completed",
		CreatedAt: rec.CreatedAt,
		Params:    rec.Params,
		Summary:   rec.Summary,
		Backtest:  toBacktestSummary(rec.Backtest),
	}
	if rec.ID == uuid.Nil {
		resp.ID = ""
	}
	if rec.Result != nil {
		resp.Events = rec.Result.Events
		resp.Skipped = rec.Result.Skipped
		if !includeDays {
			resp.Events = make([]eventstudy.EventResult, len(rec.Result.Events))
			for i, e := range rec.Result.Events {
				e.Days = nil
				resp.Events[i] = e
			}
		}
	}
	return resp
}

func toBacktestSummary(bt *eventstudy.BacktestResult) *models.BacktestSummary {
	if bt == nil {
		return nil
	}
	return &models.BacktestSummary{
		Strategy:      bt.Strategy,
		NTrades:       bt.NTrades,
		TotalReturn:   bt.TotalReturn,
		TotalAbnormal: bt.TotalAbnormal,
		MeanAbnormal:  bt.MeanAbnormal,
		HitRate:       bt.HitRate,
	}
}
