// Package spatial adapts the in-process H3 spatial index to the
// route scorer's SpatialIndex port, the only place this service touches
// gridindex/geo directly.
package spatial

import (
	"github.com/paulmach/orb"

	"saferoute/internal/platform/spatialindex"
)

// Index implements rsdomain.SpatialIndex over spatialindex.CellsNearSegment.
type Index struct{}

// New returns the default in-process spatial index adapter.
func New() Index { return Index{} }

// CellsNearSegment returns the h3 indices of every cell intersecting the
// segment buffered by bufferMeters.
func (Index) CellsNearSegment(vertices orb.LineString, bufferMeters float64) ([]string, error) {
	cells, err := spatialindex.CellsNearSegment(vertices, bufferMeters)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = string(c)
	}
	return out, nil
}
