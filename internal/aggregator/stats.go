package aggregator

import (
	"math"
	"slices"
)

// mean returns the arithmetic mean, or 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// meanStdDev returns the mean and the population standard deviation (divide by n).
func meanStdDev(values []float64) (m, sd float64) {
	if len(values) == 0 {
		return 0, 0
	}
	m = mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return m, math.Sqrt(sumSq / float64(len(values)))
}

// median returns the median of a pre-sorted (ascending) slice of float64.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mode returns the most frequent value. Ties resolve to the lowest value, so the result
// does not depend on input order. Returns 0 for an empty slice.
func mode(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	best, bestN := sorted[0], 0
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if j-i > bestN {
			best, bestN = sorted[i], j-i
		}
		i = j
	}
	return best
}

// round2 rounds to two decimals, as every figure the API reports.
func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0 // no "-0" in JSON
	}
	return r
}

// indicator maps a present value to 1 when pred holds and 0 otherwise; null stays null.
func indicator(present bool, pred bool) (float64, bool) {
	if !present {
		return 0, false
	}
	if pred {
		return 1, true
	}
	return 0, true
}
