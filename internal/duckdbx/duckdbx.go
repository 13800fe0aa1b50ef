// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package duckdbx

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"
)

type option func(*Config)

// Config holds engine-level settings applied to every connection.
type Config struct {
	MemoryLimitMB int64
	TempDirectory string
	Threads       int
}

// WithMemoryLimitMB sets a memory limit for DuckDB in megabytes.
func WithMemoryLimitMB(limit int64) option {
	return func(c *Config) {
		c.MemoryLimitMB = limit
	}
}

// WithTempDirectory sets the directory DuckDB spills to when it exceeds
// its memory budget.
func WithTempDirectory(dir string) option {
	return func(c *Config) {
		c.TempDirectory = dir
	}
}

// WithThreads sets the total number of threads DuckDB may use.
func WithThreads(n int) option {
	return func(c *Config) {
		c.Threads = n
	}
}

// DB wraps a DuckDB database handle. It is generally opened once per run
// and closed when the run finishes, on every exit path.
type DB struct {
	db     *sql.DB
	config Config
}

// Open opens a DuckDB database with the given data source name and options.
// Use ":memory:" for a transient in-process database.
func Open(dataSourceName string, opts ...option) (*DB, error) {
	db, err := sql.Open("duckdb", dataSourceName)
	if err != nil {
		return nil, err
	}

	var config Config
	for _, opt := range opts {
		opt(&config)
	}

	return &DB{db: db, config: config}, nil
}

// Conn returns a new connection to the database, with any setup
// (such as setting memory limits) already performed.
func (d *DB) Conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.setupConn(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

func (d *DB) setupConn(ctx context.Context, conn *sql.Conn) error {
	// Enable object cache to improve memory efficiency by reusing internal structures
	if _, err := conn.ExecContext(ctx, "PRAGMA enable_object_cache;"); err != nil {
		return fmt.Errorf("failed to enable object cache: %w", err)
	}

	if d.config.MemoryLimitMB > 0 {
		stmt := fmt.Sprintf("SET memory_limit='%dMB';", d.config.MemoryLimitMB)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set memory limit: %w", err)
		}
	}
	if d.config.TempDirectory != "" {
		stmt := fmt.Sprintf("SET temp_directory='%s';", escapeSingle(d.config.TempDirectory))
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set temp directory: %w", err)
		}
	}
	if d.config.Threads > 0 {
		stmt := fmt.Sprintf("SET threads=%d;", d.config.Threads)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set threads: %w", err)
		}
	}
	return nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func escapeSingle(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
