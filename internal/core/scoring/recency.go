package scoring

import "time"

// recencyWeights is indexed by months-ago k (0..12); k>12 uses recencyFloor.
var recencyWeights = []float64{
	1.00, 0.95, 0.90, 0.85, 0.75, 0.70, 0.65, 0.60, 0.55, 0.50, 0.45, 0.40, 0.35,
}

// recencyFloor is the weight applied beyond the tabulated window.
const recencyFloor = 0.30

// RecencyWeight returns the decay multiplier for a bucket k months in the
// past, measured against the current month at query time.
func RecencyWeight(k int) float64 {
	if k < 0 {
		k = 0
	}
	if k >= len(recencyWeights) {
		return recencyFloor
	}
	return recencyWeights[k]
}

// MonthsAgo returns how many whole months `month` precedes `now`, both
// truncated to their first-of-month. A future month clamps to 0.
func MonthsAgo(month, now time.Time) int {
	month = time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	now = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	k := (now.Year()-month.Year())*12 + int(now.Month()-month.Month())
	if k < 0 {
		return 0
	}
	return k
}

// MonthWindow returns the first-of-month UTC timestamps for the current
// month and the n-1 preceding it, oldest first. The Aggregator, Snapshot
// Service, and Route Scorer all resolve "last N months" this same way so
// the month set a rebuild writes matches the set a query reads.
func MonthWindow(n int, now time.Time) []time.Time {
	now = now.UTC()
	cur := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[n-1-i] = cur.AddDate(0, -i, 0)
	}
	return out
}
