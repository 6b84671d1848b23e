// Package stats holds the pure numerical routines used by the profile
// analyzer: descriptive statistics, least-squares regression, RMS, and
// fixed-bin resampling. Everything here is deterministic and allocation-light
// so the analyzer stays trivially testable.
package stats

import "math"

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation of xs. Fewer than two
// samples yield 0.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// MeanStdDev returns Mean and StdDev in one pass over the slice headers.
func MeanStdDev(xs []float64) (mean, stddev float64) {
	return Mean(xs), StdDev(xs)
}

// RMS returns the root mean square of xs, or 0 for an empty slice.
func RMS(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		ss += x * x
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// LinearRegression fits y = intercept + slope*x by ordinary least squares and
// reports the coefficient of determination clamped to [0,1]. ok is false when
// the fit is underdetermined: fewer than two points or zero variance in x.
func LinearRegression(xs, ys []float64) (intercept, slope, r2 float64, ok bool) {
	n := len(xs)
	if n < 2 || n != len(ys) {
		return 0, 0, 0, false
	}

	mx, my := Mean(xs), Mean(ys)
	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		sxx += dx * dx
		sxy += dx * (ys[i] - my)
	}
	if sxx < 1e-12 {
		return 0, 0, 0, false
	}

	slope = sxy / sxx
	intercept = my - slope*mx

	var ssRes, ssTot float64
	for i := 0; i < n; i++ {
		pred := intercept + slope*xs[i]
		ssRes += (ys[i] - pred) * (ys[i] - pred)
		ssTot += (ys[i] - my) * (ys[i] - my)
	}
	if ssTot < 1e-12 {
		// All durations identical; the fit explains nothing beyond the mean.
		return intercept, slope, 0, true
	}

	r2 = 1 - ssRes/ssTot
	if r2 < 0 {
		r2 = 0
	} else if r2 > 1 {
		r2 = 1
	}
	return intercept, slope, r2, true
}

// Resample linearly interpolates values onto a fixed number of bins. A single
// input value fills every bin; an empty input yields all zeros.
func Resample(values []float64, bins int) []float64 {
	out := make([]float64, bins)
	switch {
	case bins <= 0 || len(values) == 0:
		return out
	case len(values) == 1:
		for i := range out {
			out[i] = values[0]
		}
		return out
	}

	for i := 0; i < bins; i++ {
		pos := float64(i) / float64(bins-1) * float64(len(values)-1)
		lo := int(pos)
		if lo >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(lo)
		out[i] = values[lo]*(1-frac) + values[lo+1]*frac
	}
	return out
}

// NormalizePeak scales values so the maximum becomes 1. A non-positive peak
// leaves the input untouched.
func NormalizePeak(values []float64) []float64 {
	peak := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	out := make([]float64, len(values))
	if peak <= 0 {
		copy(out, values)
		return out
	}
	for i, v := range values {
		out[i] = v / peak
	}
	return out
}
