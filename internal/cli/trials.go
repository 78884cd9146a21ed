package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"biotech-event-study/internal/config"
	"biotech-event-study/internal/data"
	"biotech-event-study/internal/model"
	"biotech-event-study/internal/pipeline"
	"biotech-event-study/internal/scoring"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newTrialsCmd() *cobra.Command {
	var (
		cfgPath    string
		condition  string
		phase      string
		maxResults int
		daysAhead  int
		historical bool
		from       string
		to         string
		sponsorMap string
		snapshot   string
		offline    bool
		out        string
	)

	c := &cobra.Command{
		Use:   "trials",
		Short: "Pull trials from ClinicalTrials.gov, map sponsors to tickers and export events",
		Example: `  cli trials --condition oncology --phase PHASE3 --out events.csv
  cli trials --config examples/study.yaml --historical --from 2022-01-01 --to 2024-12-31`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			p := &cfg.Pipeline
			if flags.Changed("condition") {
				p.Condition = condition
			}
			if flags.Changed("phase") {
				p.Phase = strings.ToUpper(phase)
			}
			if flags.Changed("max-results") {
				p.MaxResults = maxResults
			}
			if flags.Changed("days-ahead") {
				p.DaysAhead = daysAhead
			}
			if flags.Changed("historical") {
				p.Historical = historical
			}
			if flags.Changed("from") {
				p.From = from
			}
			if flags.Changed("to") {
				p.To = to
			}
			if flags.Changed("sponsor-map") {
				p.SponsorMapFile = sponsorMap
			}
			if flags.Changed("snapshot") {
				p.SnapshotFile = snapshot
			}
			if flags.Changed("out") {
				cfg.Data.EventsFile = out
			}
			return runTrials(cmd, cfg, offline)
		},
	}

	f := c.Flags()
	f.StringVarP(&cfgPath, "config", "c", "", "Study config YAML (optional; pipeline section)")
	f.StringVar(&condition, "condition", "", "Condition to search, e.g. oncology")
	f.StringVar(&phase, "phase", "", "Trial phase: PHASE1|PHASE2|PHASE3|PHASE4")
	f.IntVar(&maxResults, "max-results", 100, "Maximum trials to fetch across pages")
	f.IntVar(&daysAhead, "days-ahead", 180, "Upcoming mode: keep completions within this many days")
	f.BoolVar(&historical, "historical", false, "Keep past completions between --from and --to instead of upcoming ones")
	f.StringVar(&from, "from", "", "Historical mode start date (YYYY-MM-DD)")
	f.StringVar(&to, "to", "", "Historical mode end date (YYYY-MM-DD)")
	f.StringVar(&sponsorMap, "sponsor-map", "", "Sponsor to ticker CSV (default sponsor_ticker_map.csv)")
	f.StringVar(&snapshot, "snapshot", "", "Save fetched trials to this JSON file (read it back with --offline)")
	f.BoolVar(&offline, "offline", false, "Replay trials from --snapshot instead of calling ClinicalTrials.gov")
	f.StringVarP(&out, "out", "o", "", "Events CSV to write (default events.csv)")
	return c
}

func runTrials(cmd *cobra.Command, cfg *config.Config, offline bool) error {
	p := cfg.Pipeline
	if strings.TrimSpace(p.Condition) == "" && !offline {
		return fmt.Errorf("--condition (or pipeline.condition) is required")
	}
	if offline && p.SnapshotFile == "" {
		return fmt.Errorf("--offline needs --snapshot")
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return err
	}
	sponsors, err := data.LoadSponsorMap(p.SponsorMapFile)
	if err != nil {
		return err
	}

	var source pipeline.TrialSource
	if offline {
		snap, err := data.LoadTrialSnapshot(p.SnapshotFile)
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"trials": len(snap.Trials), "fetched_at": snap.FetchedAt}).Info("replaying trial snapshot")
		source = snap
	} else {
		source = data.NewClinicalTrialsClient(p.ClinicalTrials, 0)
	}

	pl := pipeline.New(source, sponsors, scoring.New(cfg.ScoringRules()))
	res, err := pl.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if !offline && p.SnapshotFile != "" {
		snap := &data.TrialSnapshot{FetchedAt: time.Now().UTC(), Query: opts.Query, Trials: res.Trials}
		if err := data.SaveTrialSnapshot(snap, p.SnapshotFile); err != nil {
			return err
		}
		log.WithField("path", p.SnapshotFile).Info("saved trial snapshot")
	}

	if err := data.WriteEventsCSV(cfg.Data.EventsFile, res.Events); err != nil {
		return err
	}
	if len(res.Unmatched) > 0 {
		path := filepath.Join(cfg.Output.Dir, "unmatched_sponsors.csv")
		unmatched := data.NewSponsorMap(nil)
		unmatched.Merge(res.Unmatched)
		if err := data.SaveSponsorMap(unmatched, path); err != nil {
			return err
		}
		log.WithFields(log.Fields{"path": path, "count": len(res.Unmatched)}).Info("wrote unmatched sponsors")
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Fetched %d trials, %d mapped to tickers, %d selected\n", len(res.Trials), len(res.Matched), len(res.Selected))
	printEvents(w, res.Events)
	fmt.Fprintf(w, "Wrote %d events to %s\n", len(res.Events), cfg.Data.EventsFile)
	return nil
}

func printEvents(w io.Writer, events []model.Event) {
	if len(events) == 0 {
		return
	}
	fmt.Fprintf(w, "%-8s %-12s %-13s %-16s %s\n", "ticker", "event_date", "trial_id", "quality", "catalyst")
	for _, e := range events {
		fmt.Fprintf(w, "%-8s %-12s %-13s %-16s %s\n",
			e.Ticker, e.EventDate.Format("2006-01-02"), e.TrialID, e.QualityScore, e.CatalystType)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
