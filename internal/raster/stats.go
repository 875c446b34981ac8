package raster

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NaNPercentile returns the pth percentile (0-100) of the non-NaN samples
// using linear interpolation between order statistics, the same
// convention the score thresholds were calibrated against. Returns NaN
// when every sample is NaN.
func NaNPercentile(data []float64, p float64) float64 {
	vals := compactFinite(data)
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	if p <= 0 {
		return vals[0]
	}
	if p >= 100 {
		return vals[len(vals)-1]
	}
	h := float64(len(vals)-1) * p / 100
	lo := int(math.Floor(h))
	frac := h - float64(lo)
	if frac == 0 {
		return vals[lo]
	}
	return vals[lo] + frac*(vals[lo+1]-vals[lo])
}

// NaNMean returns the mean of the non-NaN samples, NaN if there are none.
func NaNMean(data []float64) float64 {
	vals := compactFinite(data)
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// NaNMax returns the maximum non-NaN sample, NaN if there are none.
func NaNMax(data []float64) float64 {
	vals := compactFinite(data)
	if len(vals) == 0 {
		return math.NaN()
	}
	return floats.Max(vals)
}

// NaNMin returns the minimum non-NaN sample, NaN if there are none.
func NaNMin(data []float64) float64 {
	vals := compactFinite(data)
	if len(vals) == 0 {
		return math.NaN()
	}
	return floats.Min(vals)
}

// compactFinite copies the non-NaN samples into a fresh slice. NaN marks
// missing data; infinities are real values and are kept.
func compactFinite(data []float64) []float64 {
	vals := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	return vals
}
