package domain

import (
	"context"
	"time"
)

// ServicePort is the Aggregator's public surface: the idempotent admin
// operations an operator runs to (re)build and check the grid.
type ServicePort interface {
	// Rebuild deterministically recomputes the grid over the last N
	// months relative to now.
	Rebuild(ctx context.Context, months int) (RebuildReport, error)

	// IngestMonth fetches/imports one month's events then re-aggregates
	// that month only.
	IngestMonth(ctx context.Context, year int, month time.Month) (RebuildReport, error)

	// ValidateGridHealth re-checks consistency invariants over a sample
	// of cells and reports how many failed, without repairing anything
	// itself.
	ValidateGridHealth(ctx context.Context, sampleSize int) (HealthReport, error)
}

// StorageRepo is the persistence seam the Aggregator upserts SafetyCells
// through and reads stale-cell bookkeeping from.
type StorageRepo interface {
	// UpsertCells writes every bucket in cells as a SafetyCell within the
	// caller's transaction. Idempotent: re-running with identical buckets
	// leaves totals unchanged.
	UpsertCells(ctx context.Context, cells []SafetyCell) error

	// MarkStaleOutsideWindow flags cells for months not in keepMonths as
	// stale (excluded from snapshot queries) without deleting them.
	MarkStaleOutsideWindow(ctx context.Context, keepMonths []time.Time) error

	// SampleCells returns up to limit cells for invariant re-checking,
	// newest updated_at first.
	SampleCells(ctx context.Context, limit int) ([]SafetyCell, error)
}
