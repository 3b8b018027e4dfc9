package gridindex

import (
	"testing"

	"github.com/paulmach/orb"
)

func mustCell(t *testing.T, lat, lon float64) H3Index {
	t.Helper()
	idx, err := CellOf(lat, lon)
	if err != nil {
		t.Fatalf("CellOf(%v, %v): %v", lat, lon, err)
	}
	return idx
}

func TestCellOf_Deterministic(t *testing.T) {
	a := mustCell(t, 40.7128, -74.0060)
	b := mustCell(t, 40.7128, -74.0060)
	if a != b {
		t.Fatalf("CellOf not deterministic: %s != %s", a, b)
	}
	if a == "" {
		t.Fatal("CellOf returned empty index")
	}
}

func TestCellOf_DistinctPointsDistinctCells(t *testing.T) {
	a := mustCell(t, 40.7128, -74.0060)
	b := mustCell(t, -33.8688, 151.2093)
	if a == b {
		t.Fatalf("expected distinct cells for far-apart points, got %s for both", a)
	}
}

func TestResolutionOf_ValidCell(t *testing.T) {
	idx := mustCell(t, 51.5074, -0.1278)
	res, err := ResolutionOf(idx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != Resolution {
		t.Fatalf("resolution = %d, want %d", res, Resolution)
	}
}

func TestResolutionOf_MalformedIndex(t *testing.T) {
	if _, err := ResolutionOf("not-an-h3-index"); err == nil {
		t.Fatal("expected error for malformed index")
	}
}

func TestBoundaryOf_ClosedPolygon(t *testing.T) {
	idx := mustCell(t, 35.6762, 139.6503)
	poly, err := BoundaryOf(idx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(poly) != 1 {
		t.Fatalf("expected a single outer ring, got %d rings", len(poly))
	}
	ring := poly[0]
	if len(ring) < 4 {
		t.Fatalf("ring too short: %d points", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		t.Fatalf("ring is not closed: first=%v last=%v", ring[0], ring[len(ring)-1])
	}
}

func TestBoundaryOf_MalformedIndex(t *testing.T) {
	if _, err := BoundaryOf("garbage"); err == nil {
		t.Fatal("expected error for malformed index")
	}
}

func TestGridDisk_IncludesSelf(t *testing.T) {
	idx := mustCell(t, 48.8566, 2.3522)
	disk, err := GridDisk(idx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, c := range disk {
		if c == idx {
			found = true
		}
	}
	if !found {
		t.Fatal("GridDisk(idx, 1) did not include idx itself")
	}
	// a resolution-10 hex has 6 neighbors, so k=1 disk should be 7 cells
	// unless it straddles a pentagon (vanishingly unlikely for these test
	// coordinates).
	if len(disk) != 7 {
		t.Fatalf("expected 7 cells in k=1 disk, got %d", len(disk))
	}
}

func TestAreNeighbors_TrueForAdjacentDiskMembers(t *testing.T) {
	idx := mustCell(t, 48.8566, 2.3522)
	disk, err := GridDisk(idx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var neighbor H3Index
	for _, c := range disk {
		if c != idx {
			neighbor = c
			break
		}
	}
	if neighbor == "" {
		t.Fatal("no neighbor found in disk")
	}
	ok, err := AreNeighbors(idx, neighbor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected %s and %s to be neighbors", idx, neighbor)
	}
}

func TestAreNeighbors_FalseForDistantCells(t *testing.T) {
	a := mustCell(t, 40.7128, -74.0060)
	b := mustCell(t, -33.8688, 151.2093)
	ok, err := AreNeighbors(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected distant cells to not be neighbors")
	}
}

func TestAreNeighbors_MalformedIndex(t *testing.T) {
	idx := mustCell(t, 0, 0)
	if _, err := AreNeighbors(idx, "garbage"); err == nil {
		t.Fatal("expected error for malformed second index")
	}
}

func TestCellID_Format(t *testing.T) {
	idx := mustCell(t, 1, 1)
	id := CellID(idx, 2024, 3)
	want := string(idx) + "_202403"
	if id != want {
		t.Fatalf("CellID = %q, want %q", id, want)
	}
}

func TestPolygonToCells_RejectsOpenRing(t *testing.T) {
	open := orb.Polygon{orb.Ring{{0, 0}, {0, 1}, {1, 1}}}
	if _, err := PolygonToCells(open); err == nil {
		t.Fatal("expected error for open ring")
	}
}

func TestPolygonToCells_FindsCenterCell(t *testing.T) {
	idx := mustCell(t, 37.7749, -122.4194)
	poly, err := BoundaryOf(idx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cells, err := PolygonToCells(poly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cells) == 0 {
		t.Fatal("expected at least one cell covering its own boundary polygon")
	}
}
