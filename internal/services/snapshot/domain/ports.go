package domain

import (
	"context"
	"time"
)

// ServicePort is the Snapshot Service's public surface.
type ServicePort interface {
	Snapshot(ctx context.Context, q Query) (Snapshot, error)
}

// StorageRepo reads SafetyCell rows back for a snapshot query.
type StorageRepo interface {
	// CellsInBBoxMonths returns every non-stale cell whose geom intersects
	// bbox and whose month is in months.
	CellsInBBoxMonths(ctx context.Context, bbox BBox, months []time.Time) ([]CellRow, error)
}
