package xbrl

import "math"

// Margin bounds in percent. Values outside are treated as missing.
const (
	MinMarginPct = -200.0
	MaxMarginPct = 100.0
)

// Millions scales a USD amount to millions, rounded to two decimals.
func Millions(v float64) float64 {
	return Round(v/1e6, 2)
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Percent returns numerator/denominator as a percentage rounded to one
// decimal, or false when the denominator is zero.
func Percent(numerator, denominator float64) (float64, bool) {
	if denominator == 0 {
		return 0, false
	}
	return Round(numerator/denominator*100, 1), true
}

// BoundedMargin returns the margin percentage, or nil when the denominator
// is zero or the result falls outside [MinMarginPct, MaxMarginPct].
func BoundedMargin(numerator, denominator float64) *float64 {
	pct, ok := Percent(numerator, denominator)
	if !ok || math.IsNaN(pct) || pct < MinMarginPct || pct > MaxMarginPct {
		return nil
	}
	return &pct
}
