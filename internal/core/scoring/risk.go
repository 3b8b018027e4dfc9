// Package scoring holds the pure risk and safety primitives shared by the
// snapshot and route-scoring call sites. Nothing in this package touches
// storage or the network; it exists so both callers fold through the
// identical function.
package scoring

import "math"

// riskThresholds are the weighted-count breakpoints for the piecewise-linear
// risk function. Order matters: each entry is (lower bound, value at lower
// bound, slope per unit weight above the lower bound).
var riskThresholds = []struct {
	lo, val, slope float64
}{
	{0, 0, 0.2 / 5},
	{5, 0.2, 0.2 / 15},
	{20, 0.4, 0.2 / 30},
	{50, 0.6, 0.2 / 50},
	{100, 0.8, 0.15 / 100},
}

// Risk maps a weighted crime count w to a risk value in [0, 1].
// It is piecewise-linear over fixed thresholds (5, 20, 50, 100, 200) and is
// the single source of truth for both hexagon and route-segment scoring.
func Risk(w float64) float64 {
	switch {
	case w <= 0:
		return 0
	case w < 200:
		for i := len(riskThresholds) - 1; i >= 0; i-- {
			t := riskThresholds[i]
			if w >= t.lo {
				return t.val + t.slope*(w-t.lo)
			}
		}
		return 0
	default:
		r := 0.95 + 0.05*math.Min(w-200, 200)/200
		return math.Min(r, 1.0)
	}
}

// SafetyScore converts a risk value to the 0-100 safety score, rounded to
// one decimal place per the snapshot/route output contract.
func SafetyScore(risk float64) float64 {
	return round((1 - risk) * 100, 1)
}

// RiskClass buckets a safety score into low/medium/high.
func RiskClass(safety float64) string {
	switch {
	case safety >= 75:
		return "low"
	case safety >= 50:
		return "medium"
	default:
		return "high"
	}
}

// round rounds v to n decimal places using standard half-away-from-zero
// rounding.
func round(v float64, n int) float64 {
	p := math.Pow(10, float64(n))
	return math.Round(v*p) / p
}

// Round exposes the same half-away-from-zero rounding to callers outside
// this package (route scorer's risk_score/duration tie-breaks, cache
// fingerprinting) so every rounding point in the engine agrees.
func Round(v float64, n int) float64 { return round(v, n) }
