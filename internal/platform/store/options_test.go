package store

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithLogger_SetsStoreLogger_AndLogs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := zerolog.New(&buf) // write to buffer so we can assert output

	s := &Store{}
	if err := WithLogger(lg)(s); err != nil {
		t.Fatalf("WithLogger returned error: %v", err)
	}

	// Emit via the logger stored on the Store and assert it reaches our buffer
	s.Log.Info().Str("k", "v").Msg("hello")
	if buf.Len() == 0 {
		t.Fatalf("expected logger to write to buffer, got empty output")
	}

	// Idempotence: re-applying should still work
	prev := buf.Len()
	if err := WithLogger(lg)(s); err != nil {
		t.Fatalf("WithLogger returned error on reapply: %v", err)
	}
	s.Log.Info().Msg("again")
	if buf.Len() == prev {
		t.Fatalf("expected additional log output after reapply")
	}
}
