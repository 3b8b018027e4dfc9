package scoring

import "testing"

func approxEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestRisk_Boundaries(t *testing.T) {
	cases := []struct {
		name string
		w    float64
		want float64
		tol  float64
	}{
		{"zero", 0, 0, 1e-9},
		{"w=5 exact", 5, 0.2, 1e-9},
		{"w=20 exact", 20, 0.4, 1e-9},
		{"w=50 exact", 50, 0.6, 1e-9},
		{"w=100 exact", 100, 0.8, 1e-9},
		{"w=200", 200, 0.95, 1e-9},
		{"w=400 caps at 1", 400, 1.0, 1e-9},
		{"w>400 still caps at 1", 1000, 1.0, 1e-9},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Risk(c.w)
			if !approxEqual(got, c.want, c.tol) {
				t.Fatalf("Risk(%v) = %v, want %v", c.w, got, c.want)
			}
		})
	}
}

// TestRisk_Scenario1: one violent-crime event (harm 3.0) in the current
// month, no time-of-day filter.
func TestRisk_Scenario1(t *testing.T) {
	w := 3.0
	risk := Risk(w)
	if !approxEqual(risk, 0.12, 1e-3) {
		t.Fatalf("risk = %v, want ~0.12", risk)
	}
	safety := SafetyScore(risk)
	if !approxEqual(safety, 88.0, 0.1) {
		t.Fatalf("safety = %v, want 88.0", safety)
	}
}

// TestRisk_Scenario2: same event queried with a night filter,
// w = 3.0 * 2.5 (night multiplier) = 7.5.
func TestRisk_Scenario2(t *testing.T) {
	w := 7.5
	risk := Risk(w)
	if !approxEqual(risk, 0.2333, 1e-3) {
		t.Fatalf("risk = %v, want ~0.2333", risk)
	}
	safety := SafetyScore(risk)
	if !approxEqual(safety, 76.7, 0.1) {
		t.Fatalf("safety = %v, want 76.7", safety)
	}
}

// TestRisk_Scenario3 checks recency decay: one event 12
// months ago, w = 3.0 * 0.35 = 1.05.
func TestRisk_Scenario3(t *testing.T) {
	w := 3.0 * RecencyWeight(12)
	if !approxEqual(w, 1.05, 1e-9) {
		t.Fatalf("w = %v, want 1.05", w)
	}
	risk := Risk(w)
	if !approxEqual(risk, 0.042, 1e-3) {
		t.Fatalf("risk = %v, want ~0.042", risk)
	}
	safety := SafetyScore(risk)
	if !approxEqual(safety, 95.8, 0.1) {
		t.Fatalf("safety = %v, want 95.8", safety)
	}
}

// TestRisk_Scenario4Parity checks hexagon/route parity:
// w_group = 109.45 must produce a safety score of 18.6 +/- 0.1 whether it
// arrives via a cell or a single-segment route whose mean equals it.
func TestRisk_Scenario4Parity(t *testing.T) {
	w := 109.45
	risk := Risk(w)
	safety := SafetyScore(risk)
	if !approxEqual(safety, 18.6, 0.1) {
		t.Fatalf("cell safety = %v, want 18.6 +/- 0.1", safety)
	}

	// The route scorer's w_route for a single segment is exactly that
	// segment's mean, which for one cell equals w_group.
	routeSafety := SafetyScore(Risk(w))
	if routeSafety != safety {
		t.Fatalf("route safety %v != cell safety %v", routeSafety, safety)
	}
}

// TestRisk_Scenario5Averaging: a route through 20 cells with
// weights {100, 10x5, 3x14}, mean = (100+50+42)/20 = 9.6.
func TestRisk_Scenario5Averaging(t *testing.T) {
	total := 100.0 + 10*5 + 3*14
	mean := total / 20
	if !approxEqual(mean, 9.6, 1e-9) {
		t.Fatalf("mean = %v, want 9.6", mean)
	}
	risk := Risk(mean)
	if !approxEqual(risk, 0.2613, 1e-3) {
		t.Fatalf("risk = %v, want ~0.2613", risk)
	}
	safety := SafetyScore(risk)
	if !approxEqual(safety, 73.9, 0.1) {
		t.Fatalf("safety = %v, want 73.9", safety)
	}

	// The single hotspot cell (w=100) must independently score "high".
	hotspotSafety := SafetyScore(Risk(100))
	if RiskClass(hotspotSafety) != "high" {
		t.Fatalf("w=100 cell risk class = %s, want high", RiskClass(hotspotSafety))
	}
	if !approxEqual(hotspotSafety, 20.0, 0.1) {
		t.Fatalf("w=100 cell safety = %v, want ~20.0", hotspotSafety)
	}
}

func TestRisk_Monotonic(t *testing.T) {
	// Adding crime weight can never decrease risk.
	prev := 0.0
	for w := 0.0; w <= 500; w += 1.5 {
		r := Risk(w)
		if r < prev-1e-12 {
			t.Fatalf("risk decreased at w=%v: %v < %v", w, r, prev)
		}
		prev = r
	}
}

func TestRiskClass_Thresholds(t *testing.T) {
	cases := []struct {
		safety float64
		want   string
	}{
		{100, "low"},
		{75, "low"},
		{74.9, "medium"},
		{50, "medium"},
		{49.9, "high"},
		{0, "high"},
	}
	for _, c := range cases {
		if got := RiskClass(c.safety); got != c.want {
			t.Errorf("RiskClass(%v) = %s, want %s", c.safety, got, c.want)
		}
	}
}

func TestSafetyScore_ZeroWeightIsFullSafety(t *testing.T) {
	safety := SafetyScore(Risk(0))
	if safety != 100.0 {
		t.Fatalf("safety = %v, want 100.0", safety)
	}
	if RiskClass(safety) != "low" {
		t.Fatalf("risk class = %s, want low", RiskClass(safety))
	}
}
