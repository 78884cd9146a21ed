package handlers

import (
	"errors"
	"net/http"

	"biotech-event-study/internal/api/models"
	"biotech-event-study/internal/data"
	"biotech-event-study/internal/store"
	"biotech-event-study/internal/study"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func respondError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// respondUpstreamError maps domain and upstream errors to HTTP. Anything
// unrecognised becomes fallbackCode with 500.
func respondUpstreamError(c *gin.Context, err error, fallbackCode string) {
	var ctErr *data.ClinicalTrialsError
	var ppErr *data.PriceProviderError
	switch {
	case errors.As(err, &ctErr):
		status := http.StatusBadGateway
		switch ctErr.StatusCode {
		case http.StatusBadRequest:
			status = http.StatusBadRequest
		case http.StatusTooManyRequests:
			status = http.StatusTooManyRequests
		}
		respondError(c, status, ctErr.Code, ctErr.Message, map[string]interface{}{
			"status_code": ctErr.StatusCode,
			"retry_after": ctErr.RetryAfter,
		})
	case errors.As(err, &ppErr):
		respondError(c, http.StatusBadGateway, "PRICE_PROVIDER_ERROR", ppErr.Error(), map[string]interface{}{
			"provider":    ppErr.Provider,
			"ticker":      ppErr.Ticker,
			"status_code": ppErr.StatusCode,
		})
	case errors.Is(err, study.ErrBenchmarkUnavailable):
		respondError(c, http.StatusUnprocessableEntity, "BENCHMARK_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, data.ErrSponsorMapNotFound):
		respondError(c, http.StatusServiceUnavailable, "SPONSOR_MAP_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, store.ErrRunNotFound):
		respondError(c, http.StatusNotFound, "STUDY_NOT_FOUND", err.Error(), nil)
	default:
		log.WithError(err).WithField("request_id", c.GetString("request_id")).Error("request failed")
		respondError(c, http.StatusInternalServerError, fallbackCode, err.Error(), nil)
	}
}
