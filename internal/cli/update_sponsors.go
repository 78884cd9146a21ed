package cli

import (
	"errors"
	"fmt"
	"strings"

	"biotech-event-study/internal/data"
	"biotech-event-study/internal/pipeline"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newUpdateSponsorsCmd() *cobra.Command {
	var (
		mapPath    string
		snapshot   string
		condition  string
		phase      string
		maxResults int
		ctgovURL   string
		dryRun     bool
	)

	c := &cobra.Command{
		Use:   "update-sponsors",
		Short: "Add unmatched trial sponsors to the sponsor map with blank tickers",
		Long: `Collects lead sponsors that have no entry in the sponsor map and appends
them with an empty ticker. Fill in tickers by hand afterwards; blank rows mark
sponsors that are private, foreign-listed or not yet researched.`,
		Example: `  update-sponsors --condition oncology --phase PHASE3
  update-sponsors --snapshot out/trials.json --sponsor-map sponsor_ticker_map.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sponsors, err := data.LoadSponsorMap(mapPath)
			switch {
			case errors.Is(err, data.ErrSponsorMapNotFound):
				log.WithField("path", mapPath).Warn("sponsor map not found, starting a new one")
				sponsors = data.NewSponsorMap(nil)
			case err != nil:
				return err
			}
			before := sponsors.Len()

			var source pipeline.TrialSource
			if snapshot != "" {
				snap, err := data.LoadTrialSnapshot(snapshot)
				if err != nil {
					return err
				}
				source = snap
			} else {
				if strings.TrimSpace(condition) == "" {
					return fmt.Errorf("--condition is required unless --snapshot is given")
				}
				source = data.NewClinicalTrialsClient(ctgovURL, 0)
			}

			pl := pipeline.New(source, sponsors, nil)
			trials, err := pl.FetchTrials(cmd.Context(), data.SearchParams{
				Condition:  condition,
				Phase:      strings.ToUpper(phase),
				MaxResults: maxResults,
			})
			if err != nil {
				return err
			}
			match, err := pl.MapSponsors(trials)
			if err != nil {
				return err
			}

			added := sponsors.Merge(match.Unmatched)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Scanned %d trials: %d mapped, %d unmatched sponsors, %d new\n",
				len(trials), len(match.Matched), len(match.Unmatched), added)
			if dryRun {
				for _, e := range sponsors.Entries()[before:] {
					fmt.Fprintf(w, "  + %s\n", e.Sponsor)
				}
				return nil
			}
			if added == 0 {
				return nil
			}
			if err := data.SaveSponsorMap(sponsors, mapPath); err != nil {
				return err
			}
			fmt.Fprintf(w, "Saved %d sponsors to %s\n", sponsors.Len(), mapPath)
			return nil
		},
	}

	f := c.Flags()
	f.StringVarP(&mapPath, "sponsor-map", "m", "sponsor_ticker_map.csv", "Sponsor to ticker CSV to update")
	f.StringVar(&snapshot, "snapshot", "", "Read trials from a saved snapshot instead of ClinicalTrials.gov")
	f.StringVar(&condition, "condition", "", "Condition to search")
	f.StringVar(&phase, "phase", "", "Trial phase filter, e.g. PHASE3")
	f.IntVar(&maxResults, "max-results", 500, "Maximum trials to scan")
	f.StringVar(&ctgovURL, "ctgov-url", "", "ClinicalTrials.gov base URL (default https://clinicaltrials.gov)")
	f.BoolVar(&dryRun, "dry-run", false, "Print the sponsors that would be added without saving")
	return c
}
