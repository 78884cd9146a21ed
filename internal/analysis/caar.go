package analysis

import (
	"sort"

	"biotech-event-study/internal/eventstudy"
)

// CAARPoint is the cross-sectional mean abnormal return on one relative day.
type CAARPoint struct {
	RelDay int     `json:"rel_day"`
	N      int     `json:"n"`
	MeanAR float64 `json:"mean_ar"`
	CAAR   float64 `json:"caar"`
}

// CAAR averages abnormal returns across events per relative day and
// cumulates the averages in day order.
func CAAR(events []eventstudy.EventResult) []CAARPoint {
	sums := map[int]float64{}
	counts := map[int]int{}
	for _, e := range events {
		for _, d := range e.Days {
			sums[d.RelDay] += d.Abnormal
			counts[d.RelDay]++
		}
	}

	days := make([]int, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Ints(days)

	out := make([]CAARPoint, 0, len(days))
	cum := 0.0
	for _, d := range days {
		mean := sums[d] / float64(counts[d])
		cum += mean
		out = append(out, CAARPoint{RelDay: d, N: counts[d], MeanAR: mean, CAAR: cum})
	}
	return out
}
