// Package api wires the HTTP routes.
package api

import (
	"net/http"

	"biotech-event-study/internal/api/handlers"
	"biotech-event-study/internal/api/middleware"
	"biotech-event-study/internal/pipeline"
	"biotech-event-study/internal/scoring"
	"biotech-event-study/internal/store"
	"biotech-event-study/internal/study"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the routes need. Gatherer may be nil to disable
// /metrics.
type Deps struct {
	Runner         *study.Runner
	Store          store.RunStore
	Trials         pipeline.TrialSource
	SponsorMapFile string
	Scorer         *scoring.Scorer
	Gatherer       prometheus.Gatherer
	CORSOrigins    []string
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	studyHandler := handlers.NewStudyHandler(d.Runner, d.Store)
	trialsHandler := handlers.NewTrialsHandler(d.Trials, d.SponsorMapFile, d.Scorer)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/studies", studyHandler.RunStudy)
		v1.GET("/studies", studyHandler.ListStudies)
		v1.POST("/studies/compare", studyHandler.CompareStudies)
		v1.GET("/studies/:id", studyHandler.GetStudy)
		v1.GET("/studies/:id/rank", studyHandler.RankStudy)

		v1.POST("/trials/search", trialsHandler.SearchTrials)
		v1.GET("/sponsors", trialsHandler.ListSponsors)

		v1.GET("/strategies", handlers.ListStrategies)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})
	return router
}
