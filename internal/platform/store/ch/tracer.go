package ch

import (
	"context"

	"saferoute/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent captures one statement execution for tracing
type QueryEvent struct {
	SQL       string
	ElapsedUS int64
	Err       error
}

// QueryTracer receives query events when LogSQL is enabled
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a tracer that ALWAYS prints SQL when LogSQL=true,
// independent of the process-wide root level
func Tracer(root logger.Logger) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", "ch").Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	elapsedMs := float64(ev.ElapsedUS) / 1000.0
	z.log.Info().
		Float64("elapsed_ms", elapsedMs).
		Str("sql", ev.SQL).
		Err(ev.Err).
		Msg("ch query")
}
