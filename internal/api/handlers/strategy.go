package handlers

import (
	"net/http"

	"biotech-event-study/internal/api/models"
	"biotech-event-study/internal/model"

	"github.com/gin-gonic/gin"
)

// ListStrategies handles GET /api/v1/strategies
func ListStrategies(c *gin.Context) {
	positionParam := func(name, desc string, def model.Position) models.ParameterInfo {
		return models.ParameterInfo{Name: name, Type: "string", Description: desc, Default: string(def)}
	}
	strategies := []models.StrategyInfo{
		{
			Name:        "quality",
			Description: "Trades on the trial quality score: long HIGH readouts, short LOW ones, skip unscored events.",
			Parameters: []models.ParameterInfo{
				positionParam("high", "Position for HIGH quality events (LONG, SHORT or FLAT)", model.PositionLong),
				positionParam("low", "Position for LOW quality events", model.PositionShort),
				positionParam("needs_analysis", "Position for unscored events", model.PositionFlat),
			},
		},
		{
			Name:        "long_only",
			Description: "Long every event. Baseline for the average catalyst drift.",
			Parameters:  []models.ParameterInfo{},
		},
		{
			Name:        "oracle",
			Description: "Perfect foresight upper bound. Long when the realized CAR is positive, short when negative.",
			Parameters:  []models.ParameterInfo{},
		},
	}

	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
