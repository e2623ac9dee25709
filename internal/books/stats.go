package books

import (
	"math"
	"sort"
)

// ColumnStats is the descriptive summary of one numeric column.
type ColumnStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"25%"`
	P50   float64 `json:"50%"`
	P75   float64 `json:"75%"`
	Max   float64 `json:"max"`
}

// Stats returns descriptive statistics for every numeric column of the
// snapshot, keyed by column name.
func (d *Dataset) Stats() map[string]ColumnStats {
	columns := map[string][]float64{
		"price_excl_tax":    make([]float64, 0, len(d.rows)),
		"price_incl_tax":    make([]float64, 0, len(d.rows)),
		"tax":               make([]float64, 0, len(d.rows)),
		"availability":      make([]float64, 0, len(d.rows)),
		"number_of_reviews": make([]float64, 0, len(d.rows)),
		"rating":            make([]float64, 0, len(d.rows)),
	}
	for _, b := range d.rows {
		columns["price_excl_tax"] = append(columns["price_excl_tax"], b.PriceExclTax)
		columns["price_incl_tax"] = append(columns["price_incl_tax"], b.PriceInclTax)
		columns["tax"] = append(columns["tax"], b.Tax)
		columns["availability"] = append(columns["availability"], float64(b.Availability))
		columns["number_of_reviews"] = append(columns["number_of_reviews"], float64(b.NumberOfReviews))
		columns["rating"] = append(columns["rating"], float64(b.Rating))
	}

	out := make(map[string]ColumnStats, len(columns))
	for name, values := range columns {
		out[name] = describe(values)
	}
	return out
}

func describe(values []float64) ColumnStats {
	n := len(values)
	if n == 0 {
		return ColumnStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)

	// Sample standard deviation (n-1 denominator).
	var std float64
	if n > 1 {
		var ss float64
		for _, v := range sorted {
			d := v - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(n-1))
	}

	return ColumnStats{
		Count: n,
		Mean:  mean,
		Std:   std,
		Min:   sorted[0],
		P25:   quantile(sorted, 0.25),
		P50:   quantile(sorted, 0.50),
		P75:   quantile(sorted, 0.75),
		Max:   sorted[n-1],
	}
}

// quantile computes the q-th quantile of sorted values with linear
// interpolation between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
