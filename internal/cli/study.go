package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"biotech-event-study/internal/analysis"
	"biotech-event-study/internal/config"
	"biotech-event-study/internal/data"
	"biotech-event-study/internal/eventstudy"
	"biotech-event-study/internal/store"
	"biotech-event-study/internal/study"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// storeFlags select an optional run store.
type storeFlags struct {
	driver string
	dsn    string
}

func (s *storeFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&s.driver, "store-driver", "", "Run store: memory|sqlite|postgres (empty disables persistence)")
	c.Flags().StringVar(&s.dsn, "store-dsn", "eventstudy.db", "Run store DSN (sqlite file path or postgres URL)")
}

func (s *storeFlags) open(ctx context.Context) (store.RunStore, error) {
	if s.driver == "" {
		return nil, nil
	}
	return store.Open(ctx, strings.ToLower(s.driver), s.dsn)
}

func newStudyCmd() *cobra.Command {
	var (
		cfgPath string
		events  string
		outDir  string
		name    string
		stores  storeFlags
	)

	c := &cobra.Command{
		Use:   "study",
		Short: "Run a market-model event study over an events CSV",
		Example: `  cli study --config examples/study.yaml
  cli study --config examples/study.yaml --events events.csv --out out/ --store-driver sqlite`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if events != "" {
				cfg.Data.EventsFile = events
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}

			outcome, err := runStudy(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := writeStudyCSVs(cfg.Output.Dir, outcome); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSummary(w, cfg.Study.ToParams(), outcome)

			runs, err := stores.open(cmd.Context())
			if err != nil {
				return err
			}
			if runs != nil {
				defer runs.Close()
				rec := &store.RunRecord{
					Name:     name,
					Params:   outcome.Result.Params,
					Summary:  outcome.Summary,
					Result:   outcome.Result,
					Backtest: outcome.Backtest,
				}
				if err := runs.Save(cmd.Context(), rec); err != nil {
					return err
				}
				fmt.Fprintf(w, "\nSaved run %s\n", rec.ID)
			}
			fmt.Fprintf(w, "\nWrote results.csv, abnormal_returns.csv and trades.csv to %s\n", cfg.Output.Dir)
			return nil
		},
	}

	c.Flags().StringVarP(&cfgPath, "config", "c", "", "Study config YAML (required)")
	c.Flags().StringVarP(&events, "events", "e", "", "Events CSV (overrides data.events_file)")
	c.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (overrides output.dir)")
	c.Flags().StringVar(&name, "name", "", "Run name when persisting")
	stores.register(c)
	_ = c.MarkFlagRequired("config")
	return c
}

// runStudy loads events and prices as the config describes and runs the
// study with its strategy.
func runStudy(ctx context.Context, cfg *config.Config) (*study.Outcome, error) {
	events, err := data.ReadEventsCSV(cfg.Data.EventsFile)
	if err != nil {
		return nil, err
	}
	start, end, err := cfg.Data.Range()
	if err != nil {
		return nil, err
	}

	runner := study.NewRunner(priceProvider(cfg.Data))
	if cfg.Data.Concurrency > 0 {
		runner.Concurrency = cfg.Data.Concurrency
	}
	log.WithFields(log.Fields{
		"events":    len(events),
		"provider":  runner.Prices.Name(),
		"benchmark": cfg.Study.Benchmark,
	}).Info("running event study")

	out, err := runner.Run(ctx, study.Request{
		Events:         events,
		Params:         cfg.Study.ToParams(),
		Strategy:       cfg.Strategy.Name,
		StrategyParams: cfg.Strategy.Params,
		Start:          start,
		End:            end,
	})
	if err != nil {
		return nil, err
	}
	for ticker, reason := range out.FailedTickers {
		log.WithField("ticker", ticker).Warnf("no prices: %s", reason)
	}
	return out, nil
}

func priceProvider(d config.DataConfig) data.PriceProvider {
	if d.Provider == "stooq" {
		return data.NewStooqClient(d.StooqURL, 0)
	}
	return &data.CSVPriceProvider{Dir: d.PricesDir}
}

func writeStudyCSVs(dir string, out *study.Outcome) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := eventstudy.WriteResultsCSV(filepath.Join(dir, "results.csv"), out.Result.Events); err != nil {
		return err
	}
	if err := eventstudy.WriteAbnormalReturnsCSV(filepath.Join(dir, "abnormal_returns.csv"), out.Result.Events); err != nil {
		return err
	}
	return eventstudy.WriteTradesCSV(filepath.Join(dir, "trades.csv"), out.Backtest.Trades)
}

func printSummary(w io.Writer, p eventstudy.Params, out *study.Outcome) {
	res := out.Result
	fmt.Fprintf(w, "Benchmark=%s estimation=%d window=%s policy=%s\n",
		p.Benchmark, p.EstimationWindow, p.EventWindow, p.DatePolicy)
	fmt.Fprintf(w, "Studied %d events, skipped %d\n", len(res.Events), len(res.Skipped))

	if len(res.Skipped) > 0 {
		counts := map[eventstudy.SkipReason]int{}
		var order []eventstudy.SkipReason
		for _, s := range res.Skipped {
			if counts[s.Reason] == 0 {
				order = append(order, s.Reason)
			}
			counts[s.Reason]++
		}
		for _, r := range order {
			fmt.Fprintf(w, "  skipped %-24s %d\n", r, counts[r])
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-15s %-4s %-9s %-9s %-8s %-7s %-7s %-7s\n", "group", "n", "mean_car", "median", "std", "hit", "t", "p")
	rows := append([]analysis.GroupStats{out.Summary.All}, out.Summary.Groups...)
	for _, g := range rows {
		fmt.Fprintf(w, "%-15s %-4d %-9.4f %-9.4f %-8.4f %-7.2f %-7.2f %-7.3f\n",
			g.Group, g.N, g.MeanCAR, g.MedianCAR, g.StdCAR, g.HitRate, g.TStat, g.PValue)
	}
	if wt := out.Summary.HighVsLow; wt != nil {
		fmt.Fprintf(w, "\nHIGH vs LOW: diff=%.4f t=%.2f df=%.1f p=%.3f\n", wt.MeanDiff, wt.TStat, wt.DF, wt.PValue)
	}

	bt := out.Backtest
	fmt.Fprintf(w, "\nStrategy=%s trades=%d total_return=%.4f total_abnormal=%.4f hit_rate=%.2f\n",
		bt.Strategy, bt.NTrades, bt.TotalReturn, bt.TotalAbnormal, bt.HitRate)
}

func parseRunID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid run id %q: %w", s, err)
	}
	return id, nil
}
