// Package pipeline turns ClinicalTrials.gov studies into tradeable events:
// fetch, map sponsors to tickers, filter by completion date, score, export.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"biotech-event-study/internal/data"
	"biotech-event-study/internal/model"
	"biotech-event-study/internal/scoring"

	log "github.com/sirupsen/logrus"
)

// TrialSource is satisfied by *data.ClinicalTrialsClient.
type TrialSource interface {
	SearchStudies(ctx context.Context, params data.SearchParams) ([]model.Trial, error)
}

type Pipeline struct {
	Source   TrialSource
	Sponsors *data.SponsorMap
	Scorer   *scoring.Scorer
	Now      func() time.Time
}

func New(source TrialSource, sponsors *data.SponsorMap, scorer *scoring.Scorer) *Pipeline {
	return &Pipeline{Source: source, Sponsors: sponsors, Scorer: scorer, Now: time.Now}
}

func (p *Pipeline) FetchTrials(ctx context.Context, params data.SearchParams) ([]model.Trial, error) {
	if p.Source == nil {
		return nil, fmt.Errorf("trial source is nil")
	}
	return p.Source.SearchStudies(ctx, params)
}

// MatchResult splits trials by whether their sponsor has a ticker.
type MatchResult struct {
	Matched   []model.MappedTrial
	Unmatched []string // distinct sponsors without a ticker, in first-seen order
}

// MapSponsors attaches tickers. Trials from private, non-US or unmapped
// sponsors are dropped and their sponsor reported as unmatched.
func (p *Pipeline) MapSponsors(trials []model.Trial) (MatchResult, error) {
	if p.Sponsors == nil {
		return MatchResult{}, data.ErrSponsorMapNotFound
	}

	var res MatchResult
	seen := map[string]bool{}
	for _, t := range trials {
		if ticker, ok := p.Sponsors.Lookup(t.Sponsor); ok {
			res.Matched = append(res.Matched, model.MappedTrial{Trial: t, Ticker: ticker})
			continue
		}
		if !seen[t.Sponsor] {
			seen[t.Sponsor] = true
			res.Unmatched = append(res.Unmatched, t.Sponsor)
		}
	}

	preview := res.Unmatched
	if len(preview) > 10 {
		preview = preview[:10]
	}
	log.WithFields(log.Fields{
		"matched":   len(res.Matched),
		"total":     len(trials),
		"unmatched": preview,
	}).Info("pipeline: mapped sponsors to tickers")
	return res, nil
}

// FilterUpcoming keeps trials completing within [now, now+daysAhead],
// sorted by completion date. These are the tradeable catalysts.
func FilterUpcoming(trials []model.MappedTrial, daysAhead int, now time.Time) []model.MappedTrial {
	from := model.DateOnly(now)
	to := from.AddDate(0, 0, daysAhead)
	return filterBetween(trials, from, to)
}

// FilterCompleted keeps trials that completed within [from, to], for
// backtesting past readouts. A zero bound is open.
func FilterCompleted(trials []model.MappedTrial, from, to time.Time) []model.MappedTrial {
	return filterBetween(trials, from, to)
}

func filterBetween(trials []model.MappedTrial, from, to time.Time) []model.MappedTrial {
	out := make([]model.MappedTrial, 0, len(trials))
	for _, t := range trials {
		d := t.CompletionDate
		if d.IsZero() {
			continue
		}
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletionDate.Before(out[j].CompletionDate) })
	return out
}

// ExportEvents converts mapped trials into events, scoring each one.
func (p *Pipeline) ExportEvents(trials []model.MappedTrial) []model.Event {
	events := make([]model.Event, 0, len(trials))
	for _, t := range trials {
		score := p.Scorer.Score(t.Trial)
		events = append(events, model.Event{
			Ticker:       t.Ticker,
			EventDate:    model.DateOnly(t.CompletionDate),
			TrialID:      t.NCTID,
			CatalystType: t.PhaseLabel(),
			QualityScore: score.Score,
		})
	}
	return events
}

// Options drive Run.
type Options struct {
	Query data.SearchParams

	// Upcoming mode keeps trials completing within DaysAhead of now.
	// Historical mode keeps trials that completed between From and To.
	Historical bool
	DaysAhead  int
	From       time.Time
	To         time.Time
}

type Result struct {
	Trials    []model.Trial       `json:"trials"`
	Matched   []model.MappedTrial `json:"matched"`
	Selected  []model.MappedTrial `json:"selected"`
	Unmatched []string            `json:"unmatched_sponsors"`
	Events    []model.Event       `json:"events"`
}

// Run fetches, maps, filters and exports in one pass.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	trials, err := p.FetchTrials(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("fetch trials: %w", err)
	}
	match, err := p.MapSponsors(trials)
	if err != nil {
		return nil, fmt.Errorf("map sponsors: %w", err)
	}

	var selected []model.MappedTrial
	if opts.Historical {
		selected = FilterCompleted(match.Matched, opts.From, opts.To)
	} else {
		days := opts.DaysAhead
		if days <= 0 {
			days = 180
		}
		selected = FilterUpcoming(match.Matched, days, p.now())
	}
	log.WithFields(log.Fields{
		"selected":   len(selected),
		"historical": opts.Historical,
	}).Info("pipeline: filtered trials by completion date")

	return &Result{
		Trials:    trials,
		Matched:   match.Matched,
		Selected:  selected,
		Unmatched: match.Unmatched,
		Events:    p.ExportEvents(selected),
	}, nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
