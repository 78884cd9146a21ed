package cli

import (
	"fmt"
	"io"

	"biotech-event-study/internal/analysis"
	"biotech-event-study/internal/config"
	"biotech-event-study/internal/eventstudy"

	"github.com/spf13/cobra"
)

func newRankCmd() *cobra.Command {
	var (
		cfgPath string
		runID   string
		limit   int
		stores  storeFlags
	)

	c := &cobra.Command{
		Use:   "rank",
		Short: "Rank tickers by mean CAR, from a fresh study or a saved run",
		Example: `  cli rank --config examples/study.yaml
  cli rank --run 6f1c... --store-driver sqlite --store-dsn eventstudy.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var events []eventstudy.EventResult
			switch {
			case runID != "":
				id, err := parseRunID(runID)
				if err != nil {
					return err
				}
				if stores.driver == "" {
					stores.driver = "sqlite"
				}
				runs, err := stores.open(cmd.Context())
				if err != nil {
					return err
				}
				defer runs.Close()
				rec, err := runs.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if rec.Result != nil {
					events = rec.Result.Events
				}
			case cfgPath != "":
				cfg, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				out, err := runStudy(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				events = out.Result.Events
			default:
				return fmt.Errorf("either --config or --run is required")
			}

			printRanks(cmd.OutOrStdout(), analysis.RankTickers(events), limit)
			return nil
		},
	}

	c.Flags().StringVarP(&cfgPath, "config", "c", "", "Study config YAML; runs the study first")
	c.Flags().StringVar(&runID, "run", "", "Rank a saved run by id")
	c.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the top N tickers (0=all)")
	stores.register(c)
	return c
}

func printRanks(w io.Writer, ranks []analysis.TickerRank, limit int) {
	if limit > 0 && limit < len(ranks) {
		ranks = ranks[:limit]
	}
	fmt.Fprintf(w, "%-4s %-8s %-4s %-10s %-10s %-10s %-10s %-6s\n", "rank", "ticker", "n", "mean_car", "total_car", "best", "worst", "hit")
	for _, r := range ranks {
		fmt.Fprintf(w, "%-4d %-8s %-4d %-10.4f %-10.4f %-10.4f %-10.4f %-6.2f\n",
			r.Rank, r.Ticker, r.N, r.MeanCAR, r.TotalCAR, r.BestCAR, r.WorstCAR, r.HitRate)
	}
}
