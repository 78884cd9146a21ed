package analysis

import (
	"errors"
	"math"
	"sort"

	"biotech-event-study/internal/eventstudy"
	"biotech-event-study/internal/model"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GroupStats summarizes the CAR distribution of a set of events.
// TStat tests mean CAR against zero; PValue is two-sided.
type GroupStats struct {
	Group string `json:"group"`
	N     int    `json:"n"`

	MeanCAR   float64 `json:"mean_car"`
	MedianCAR float64 `json:"median_car"`
	StdCAR    float64 `json:"std_car"`
	MinCAR    float64 `json:"min_car"`
	MaxCAR    float64 `json:"max_car"`
	P05CAR    float64 `json:"p05_car"`
	P95CAR    float64 `json:"p95_car"`

	MeanRealReturn float64 `json:"mean_real_return"`

	HitRate float64 `json:"hit_rate"`
	TStat   float64 `json:"t_stat"`
	PValue  float64 `json:"p_value"`
}

// Summary is the per-quality breakdown of a study.
type Summary struct {
	All       GroupStats   `json:"all"`
	Groups    []GroupStats `json:"groups"`
	HighVsLow *WelchTest   `json:"high_vs_low,omitempty"`
}

// ComputeGroupStats describes cars. real may be nil.
func ComputeGroupStats(group string, cars, real []float64) GroupStats {
	g := GroupStats{Group: group, N: len(cars)}
	if len(cars) == 0 {
		return g
	}

	sorted := append([]float64(nil), cars...)
	sort.Float64s(sorted)
	g.MinCAR = sorted[0]
	g.MaxCAR = sorted[len(sorted)-1]
	g.MedianCAR = percentileSorted(sorted, 0.5)
	g.P05CAR = percentileSorted(sorted, 0.05)
	g.P95CAR = percentileSorted(sorted, 0.95)
	g.MeanCAR = stat.Mean(cars, nil)
	if len(real) > 0 {
		g.MeanRealReturn = stat.Mean(real, nil)
	}

	hits := 0
	for _, c := range cars {
		if c > 0 {
			hits++
		}
	}
	g.HitRate = float64(hits) / float64(len(cars))

	if len(cars) < 2 {
		g.PValue = 1
		return g
	}
	g.StdCAR = stat.StdDev(cars, nil)
	if g.StdCAR == 0 {
		g.PValue = 1
		return g
	}
	g.TStat = g.MeanCAR / (g.StdCAR / math.Sqrt(float64(len(cars))))
	g.PValue = twoSidedP(g.TStat, float64(len(cars)-1))
	return g
}

// Summarize groups studied events by quality score. Groups appear in the
// order HIGH, LOW, NEEDS_ANALYSIS and only when non-empty.
func Summarize(events []eventstudy.EventResult) Summary {
	byGroup := map[model.QualityScore][]float64{}
	realByGroup := map[model.QualityScore][]float64{}
	all := make([]float64, 0, len(events))
	allReal := make([]float64, 0, len(events))
	for _, e := range events {
		q := e.QualityScore
		if q == "" {
			q = model.QualityNeedsAnalysis
		}
		byGroup[q] = append(byGroup[q], e.CAR)
		realByGroup[q] = append(realByGroup[q], e.RealReturn)
		all = append(all, e.CAR)
		allReal = append(allReal, e.RealReturn)
	}

	s := Summary{All: ComputeGroupStats("ALL", all, allReal)}
	for _, q := range []model.QualityScore{model.QualityHigh, model.QualityLow, model.QualityNeedsAnalysis} {
		if cars := byGroup[q]; len(cars) > 0 {
			s.Groups = append(s.Groups, ComputeGroupStats(string(q), cars, realByGroup[q]))
		}
	}
	if w, err := Welch(byGroup[model.QualityHigh], byGroup[model.QualityLow]); err == nil {
		s.HighVsLow = &w
	}
	return s
}

// WelchTest compares two group means without assuming equal variances.
type WelchTest struct {
	MeanA    float64 `json:"mean_a"`
	MeanB    float64 `json:"mean_b"`
	MeanDiff float64 `json:"mean_diff"`
	TStat    float64 `json:"t_stat"`
	DF       float64 `json:"df"`
	PValue   float64 `json:"p_value"`
}

var ErrInsufficientSample = errors.New("each group needs at least two observations with non-zero variance")

func Welch(a, b []float64) (WelchTest, error) {
	if len(a) < 2 || len(b) < 2 {
		return WelchTest{}, ErrInsufficientSample
	}
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	sa := va / float64(len(a))
	sb := vb / float64(len(b))
	se := math.Sqrt(sa + sb)
	if se == 0 {
		return WelchTest{}, ErrInsufficientSample
	}

	w := WelchTest{MeanA: ma, MeanB: mb, MeanDiff: ma - mb}
	w.TStat = w.MeanDiff / se
	w.DF = (sa + sb) * (sa + sb) / (sa*sa/float64(len(a)-1) + sb*sb/float64(len(b)-1))
	w.PValue = twoSidedP(w.TStat, w.DF)
	return w, nil
}

func twoSidedP(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
