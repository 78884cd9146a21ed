package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biotech-event-study/internal/api"
	"biotech-event-study/internal/config"
	"biotech-event-study/internal/data"
	"biotech-event-study/internal/logging"
	"biotech-event-study/internal/metrics"
	"biotech-event-study/internal/model"
	"biotech-event-study/internal/scoring"
	"biotech-event-study/internal/store"
	"biotech-event-study/internal/study"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Init(cfg.Logger.Level, cfg.Logger.Format)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer runs.Close()
	log.WithField("driver", cfg.Store.Driver).Info("run store ready")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	trialCache := data.NewResponseCache[[]model.Trial](cfg.Cache.Enabled, cfg.Server.Env, cfg.Cache.TTL)
	go trialCache.RunJanitor(ctx, 10*time.Minute)

	trials := data.NewClinicalTrialsClient(cfg.Upstream.ClinicalTrialsURL, cfg.Upstream.Timeout)
	trials.Cache = trialCache
	trials.Metrics = m

	var prices data.PriceProvider
	switch cfg.Data.PriceProvider {
	case "csv":
		prices = &data.CSVPriceProvider{Dir: cfg.Data.PricesDir}
	default:
		priceCache := data.NewResponseCache[model.PriceSeries](cfg.Cache.Enabled, cfg.Server.Env, cfg.Cache.TTL)
		go priceCache.RunJanitor(ctx, 10*time.Minute)

		stooq := data.NewStooqClient(cfg.Upstream.StooqURL, cfg.Upstream.Timeout)
		stooq.Cache = priceCache
		stooq.Metrics = m
		prices = stooq
	}
	log.WithField("provider", prices.Name()).Info("price provider ready")

	runner := study.NewRunner(prices)
	runner.Metrics = m

	router := api.NewRouter(api.Deps{
		Runner:         runner,
		Store:          runs,
		Trials:         trials,
		SponsorMapFile: cfg.Data.SponsorMapFile,
		Scorer:         scoring.New(scoring.DefaultRules()),
		Gatherer:       registry,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	if _, err := os.Stat(cfg.Data.SponsorMapFile); err != nil {
		log.Warnf("sponsor map %s not readable, /trials/search and /sponsors will fail: %v", cfg.Data.SponsorMapFile, err)
	}

	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced shutdown: %v", err)
	}
	log.Info("server stopped")
}
