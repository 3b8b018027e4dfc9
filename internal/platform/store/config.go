package store

import "time"

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Guard/boot knobs:
	ConnectRetries int           // not read by openPG, which always makes up to 20 ping attempts
	PingTimeout    time.Duration // not read by openPG, which always uses a 3s per-ping timeout
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	LogSQL  bool

	// ClientName/ClientTag identify the process in clickhouse client info
	ClientName string
	ClientTag  string

	// Insert batching and retry knobs; zero values take the ch defaults
	InsertChunk int
	MaxRetries  int
	RetryBaseMs int
}
