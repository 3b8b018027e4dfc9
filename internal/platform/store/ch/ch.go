// Package ch provides a clickhouse client
package ch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Config configures clickhouse client
type Config struct {
	Addrs    []string
	Protocol clickhouse.Protocol
	TLS      *tls.Config
	Auth     clickhouse.Auth
	Dialer   func(ctx context.Context, addr string) (net.Conn, error)
	Settings clickhouse.Settings

	ClientInfo clickhouse.ClientInfo

	DialTimeout time.Duration
	ReadTimeout time.Duration
	Compression *clickhouse.Compression

	// InsertChunk caps rows per prepared batch; 0 means one batch per call
	InsertChunk int
	// MaxRetries / RetryBase govern transient insert retries
	MaxRetries int
	RetryBase  time.Duration

	Tracer QueryTracer
}

// Rows is the minimal result set iteration for ch
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
	Columns() []string
}

// CH wraps a clickhouse native connection
type CH struct {
	conn   driver.Conn
	cfg    Config
	tracer QueryTracer
}

// Open dials clickhouse with the provided config
func Open(ctx context.Context, cfg Config) (*CH, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("ch: no addrs")
	}

	opts := &clickhouse.Options{
		Addr:        cfg.Addrs,
		Protocol:    cfg.Protocol,
		TLS:         cfg.TLS,
		Auth:        cfg.Auth,
		Settings:    cfg.Settings,
		ClientInfo:  cfg.ClientInfo,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
		Compression: cfg.Compression,
	}
	if cfg.Dialer != nil {
		opts.DialContext = cfg.Dialer
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ch: open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ch: ping: %w", err)
	}

	return &CH{conn: conn, cfg: cfg, tracer: cfg.Tracer}, nil
}

// Insert appends rows to table in chunks, retrying transient failures.
// rows must be [][]any with one inner slice per row
func (c *CH) Insert(ctx context.Context, table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	if c == nil || c.conn == nil {
		return errors.New("ch: nil client")
	}

	chunk := c.cfg.InsertChunk
	if chunk <= 0 {
		chunk = len(rows)
	}

	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		if err := c.insertChunk(ctx, table, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (c *CH) insertChunk(ctx context.Context, table string, rows [][]any) error {
	attempts := c.cfg.MaxRetries + 1
	base := c.cfg.RetryBase
	if base <= 0 {
		base = 250 * time.Millisecond
	}

	var lastErr error
	for attempt := range attempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(base << (attempt - 1)):
			}
		}

		started := time.Now()
		lastErr = c.sendBatch(ctx, table, rows)
		c.trace(ctx, fmt.Sprintf("INSERT INTO %s (%d rows)", table, len(rows)), time.Since(started), lastErr)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
	}
	return fmt.Errorf("ch: insert into %s failed after %d attempts: %w", table, attempts, lastErr)
}

func (c *CH) sendBatch(ctx context.Context, table string, rows [][]any) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+table)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			_ = batch.Abort()
			return err
		}
	}
	return batch.Send()
}

// Exec runs a statement that returns no rows (DDL, mutations)
func (c *CH) Exec(ctx context.Context, sql string, args ...any) error {
	if c == nil || c.conn == nil {
		return errors.New("ch: nil client")
	}

	started := time.Now()
	err := c.conn.Exec(ctx, sql, args...)
	c.trace(ctx, sql, time.Since(started), err)
	return err
}

// Query runs a query and returns ch.Rows
func (c *CH) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if c == nil || c.conn == nil {
		return nil, errors.New("ch: nil client")
	}

	started := time.Now()
	r, err := c.conn.Query(ctx, sql, args...)
	c.trace(ctx, sql, time.Since(started), err)
	if err != nil {
		return nil, err
	}
	return &driverRows{r: r}, nil
}

// Close closes the underlying connection
func (c *CH) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *CH) trace(ctx context.Context, sql string, elapsed time.Duration, err error) {
	if c.tracer == nil {
		return
	}
	c.tracer.OnQuery(ctx, QueryEvent{SQL: sql, ElapsedUS: elapsed.Microseconds(), Err: err})
}

// driverRows adapts driver.Rows to ch.Rows
type driverRows struct {
	r driver.Rows
}

func (d *driverRows) Next() bool             { return d.r.Next() }
func (d *driverRows) Scan(dest ...any) error { return d.r.Scan(dest...) }
func (d *driverRows) Err() error             { return d.r.Err() }
func (d *driverRows) Close() error           { return d.r.Close() }
func (d *driverRows) Columns() []string      { return d.r.Columns() }
