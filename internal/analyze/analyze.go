// Package analyze computes descriptive statistics over the five-element
// tallies of many readings. All functions are pure; no I/O.
package analyze

import (
	"math"
	"sort"

	"github.com/derickschaefer/bazi/internal/model"
)

// ─── Element summary ──────────────────────────────────────────────────────────

// ElementSummary holds descriptive statistics for one element across a set
// of readings.
type ElementSummary struct {
	Element   string  `json:"element"`
	Readings  int     `json:"readings"`   // readings with an analysis
	Absent    int     `json:"absent"`     // readings where the count is 0
	AbsentPct float64 `json:"absent_pct"` // percent absent
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	P25       float64 `json:"p25"`
	Median    float64 `json:"median"`
	P75       float64 `json:"p75"`
	Max       float64 `json:"max"`
	Skew      float64 `json:"skew"`
	Strongest int     `json:"strongest"` // readings naming it strongest
	Weakest   int     `json:"weakest"`   // readings naming it weakest
}

// Elements summarizes each element in 木 火 土 金 水 order. Nil analyses
// are skipped; a missing element counts as 0. With no analyses every
// numeric field is NaN.
func Elements(analyses []*model.WuxingAnalysis) []ElementSummary {
	var present []*model.WuxingAnalysis
	for _, wa := range analyses {
		if wa != nil {
			present = append(present, wa)
		}
	}

	out := make([]ElementSummary, len(model.Elements))
	for i, el := range model.Elements {
		vals := make([]float64, 0, len(present))
		s := ElementSummary{Element: el, Readings: len(present)}
		for _, wa := range present {
			n := wa.Count[el]
			if n == 0 {
				s.Absent++
			}
			if wa.Strongest == el {
				s.Strongest++
			}
			if wa.Weakest == el {
				s.Weakest++
			}
			vals = append(vals, float64(n))
		}
		summarize(&s, vals)
		out[i] = s
	}
	return out
}

func summarize(s *ElementSummary, vals []float64) {
	if len(vals) == 0 {
		nan := math.NaN()
		s.AbsentPct, s.Mean, s.Std, s.Min, s.Max = nan, nan, nan, nan, nan
		s.P25, s.Median, s.P75, s.Skew = nan, nan, nan, nan
		return
	}
	s.AbsentPct = float64(s.Absent) / float64(len(vals)) * 100

	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Mean = sumF(vals) / float64(len(vals))
	s.Std = stddevF(vals, s.Mean)
	s.Median = percentile(sorted, 50)
	s.P25 = percentile(sorted, 25)
	s.P75 = percentile(sorted, 75)
	s.Skew = skewness(vals, s.Mean, s.Std)
}

// ─── Day masters ──────────────────────────────────────────────────────────────

// Tally is a labelled count.
type Tally struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DayMasters counts records by the element of their day master, in
// element order. Records without one are counted under "".
func DayMasters(records []model.Record) []Tally {
	counts := make(map[string]int, len(model.Elements))
	for _, r := range records {
		counts[r.RiganWuxing]++
	}
	out := make([]Tally, 0, len(model.Elements)+1)
	for _, el := range model.Elements {
		out = append(out, Tally{Label: el, Count: counts[el]})
		delete(counts, el)
	}
	if n := counts[""]; n > 0 {
		out = append(out, Tally{Label: "", Count: n})
	}
	return out
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func sumF(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func stddevF(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var sq float64
	for _, v := range vals {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(vals)-1))
}

func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	idx := p / 100 * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}
	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func skewness(vals []float64, mean, std float64) float64 {
	n := float64(len(vals))
	if n < 3 || std == 0 {
		return 0
	}
	var s float64
	for _, v := range vals {
		d := (v - mean) / std
		s += d * d * d
	}
	return s * n / ((n - 1) * (n - 2))
}
