// Package gridindex wraps the uber/h3-go hexagonal index. It is the only
// package allowed to import the h3 library directly; everything else in the
// engine talks in terms of H3Index strings and orb geometry.
package gridindex

import (
	"fmt"

	h3 "github.com/uber/h3-go/v4"
	"github.com/paulmach/orb"

	perrs "saferoute/internal/platform/errors"
)

// Resolution is the fixed H3 resolution the engine operates at (~73 m edge).
const Resolution = 10

// H3Index is the stable string form of an h3.Cell, the authoritative
// identifier stored on every SafetyCell.
type H3Index string

// CellOf returns the resolution-10 cell containing (lat, lon).
func CellOf(lat, lon float64) (H3Index, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), Resolution)
	if err != nil {
		return "", perrs.Wrapf(err, perrs.ErrorCodeInvalidArgument, "gridindex: cell_of(%f, %f)", lat, lon)
	}
	return H3Index(cell.String()), nil
}

// parse turns a stored index back into an h3.Cell, rejecting anything that
// isn't a valid resolution-10 cell.
func parse(idx H3Index) (h3.Cell, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(idx)); err != nil {
		return 0, perrs.Wrapf(err, perrs.ErrorCodeInvalidArgument, "gridindex: malformed h3 index %q", idx)
	}
	if !c.IsValid() {
		return 0, perrs.InvalidArgf("gridindex: invalid h3 cell %q", idx)
	}
	if c.Resolution() != Resolution {
		return 0, perrs.InvalidArgf("gridindex: cell %q is resolution %d, want %d", idx, c.Resolution(), Resolution)
	}
	return c, nil
}

// ResolutionOf returns the resolution encoded in idx, or an error if idx does
// not parse as a valid resolution-10 h3 cell.
func ResolutionOf(idx H3Index) (int, error) {
	c, err := parse(idx)
	if err != nil {
		return 0, err
	}
	return c.Resolution(), nil
}

// BoundaryOf returns the closed WGS84 polygon boundary of idx: the first
// coordinate is repeated as the last, per the snapshot output contract.
func BoundaryOf(idx H3Index) (orb.Polygon, error) {
	c, err := parse(idx)
	if err != nil {
		return nil, err
	}
	b, err := c.Boundary()
	if err != nil {
		return nil, perrs.Wrapf(err, perrs.ErrorCodeDB, "gridindex: boundary of %q", idx)
	}
	if len(b) < 3 {
		return nil, perrs.InvalidArgf("gridindex: degenerate boundary for %q", idx)
	}
	ring := make(orb.Ring, 0, len(b)+1)
	for _, ll := range b {
		ring = append(ring, orb.Point{ll.Lng, ll.Lat})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}, nil
}

// AreNeighbors reports whether two resolution-10 cells share an edge.
func AreNeighbors(a, b H3Index) (bool, error) {
	ca, err := parse(a)
	if err != nil {
		return false, err
	}
	cb, err := parse(b)
	if err != nil {
		return false, err
	}
	ok, err := ca.IsNeighbor(cb)
	if err != nil {
		return false, perrs.Wrapf(err, perrs.ErrorCodeDB, "gridindex: are_neighbors(%s, %s)", a, b)
	}
	return ok, nil
}

// CellID returns a stable "{h3_index}_{YYYYMM}" bucket key.
func CellID(idx H3Index, year int, month int) string {
	return fmt.Sprintf("%s_%04d%02d", idx, year, month)
}

// GridDisk returns every resolution-10 cell within k grid steps of idx,
// inclusive of idx itself.
func GridDisk(idx H3Index, k int) ([]H3Index, error) {
	c, err := parse(idx)
	if err != nil {
		return nil, err
	}
	disk, err := h3.GridDisk(c, k)
	if err != nil {
		return nil, perrs.Wrapf(err, perrs.ErrorCodeDB, "gridindex: grid_disk(%s, %d)", idx, k)
	}
	out := make([]H3Index, len(disk))
	for i, dc := range disk {
		out[i] = H3Index(dc.String())
	}
	return out, nil
}

// PolygonToCells returns every resolution-10 cell whose center falls inside
// poly. poly's outer ring must be closed (first point repeated as last);
// any additional rings are treated as holes. This is the spatial-index
// primitive behind bbox snapshot queries and segment-buffer intersection.
func PolygonToCells(poly orb.Polygon) ([]H3Index, error) {
	if len(poly) == 0 || len(poly[0]) < 4 {
		return nil, perrs.InvalidArgf("gridindex: polygon_to_cells requires a closed outer ring")
	}
	geo := h3.GeoPolygon{GeoLoop: ringToLoop(poly[0])}
	for _, hole := range poly[1:] {
		geo.Holes = append(geo.Holes, ringToLoop(hole))
	}
	cells, err := h3.PolygonToCells(geo, Resolution)
	if err != nil {
		return nil, perrs.Wrapf(err, perrs.ErrorCodeDB, "gridindex: polygon_to_cells")
	}
	out := make([]H3Index, len(cells))
	for i, c := range cells {
		out[i] = H3Index(c.String())
	}
	return out, nil
}

func ringToLoop(ring orb.Ring) h3.GeoLoop {
	loop := make(h3.GeoLoop, len(ring))
	for i, p := range ring {
		loop[i] = h3.NewLatLng(p.Lat(), p.Lon())
	}
	return loop
}
