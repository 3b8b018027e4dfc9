// Package spatialindex is the in-process spatial index used for segment
// intersection and bbox queries: it reuses the H3 grid itself (via
// gridindex.PolygonToCells) rather than standing up a separate R-tree, since
// H3's own polygon-fill already answers "which cells cover this shape" in
// roughly the indexed candidate-set work a tree would do, without adding a
// second spatial structure to keep consistent with the grid.
package spatialindex

import (
	"github.com/paulmach/orb"

	"saferoute/internal/core/gridindex"
	"saferoute/internal/platform/geo"
)

// CellsInBBox returns every resolution-10 cell covering the bounding box,
// the candidate set for a snapshot query.
func CellsInBBox(minLon, minLat, maxLon, maxLat float64) ([]gridindex.H3Index, error) {
	poly := geo.BBoxPolygon(minLon, minLat, maxLon, maxLat)
	return gridindex.PolygonToCells(poly)
}

// CellsNearSegment returns every resolution-10 cell intersecting a segment
// buffered by bufferMeters, the candidate set for a route segment. Brute force
// over the full grid is avoided: the buffer polygon bounds the H3
// polygon-fill to only the cells it covers.
func CellsNearSegment(vertices orb.LineString, bufferMeters float64) ([]gridindex.H3Index, error) {
	buf := geo.BufferPolygon(vertices, bufferMeters)
	return gridindex.PolygonToCells(buf)
}
