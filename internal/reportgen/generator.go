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

package reportgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/tripreport/config"
	"github.com/cardinalhq/tripreport/internal/cloudstorage"
	"github.com/cardinalhq/tripreport/internal/duckdbx"
	"github.com/cardinalhq/tripreport/internal/idgen"
)

const defaultTopTrips = 10

// Request names the input and output locations for one report run.
type Request struct {
	InputBucket  string
	InputKey     string
	OutputBucket string
	OutputKey    string
}

// Generator owns the query engine session and the scratch directory for one
// run. Both are released exactly once by Close, on success or failure.
type Generator struct {
	storage cloudstorage.Client
	db      *duckdbx.DB
	tmpdir  string
	runID   int64
	topN    int

	closeOnce sync.Once
	closeErr  error
}

type generatorOptions struct {
	runID  int64
	topN   int
	duckdb config.DuckDBConfig
}

// Option is a functional option for New.
type Option func(*generatorOptions)

// WithRunID sets the run identifier attached to the engine session and the
// scratch directory. If unset, a fresh flake ID is generated.
func WithRunID(id int64) Option {
	return func(o *generatorOptions) {
		o.runID = id
	}
}

// WithTopTrips sets how many of the highest-fare trips the report includes.
func WithTopTrips(n int) Option {
	return func(o *generatorOptions) {
		if n > 0 {
			o.topN = n
		}
	}
}

// WithDuckDBConfig applies engine settings (memory limit, spill directory,
// threads) to the session.
func WithDuckDBConfig(cfg config.DuckDBConfig) Option {
	return func(o *generatorOptions) {
		o.duckdb = cfg
	}
}

// New acquires an engine session and a scratch directory for one report run.
// The caller must Close the generator when done.
func New(storage cloudstorage.Client, opts ...Option) (*Generator, error) {
	o := generatorOptions{
		runID:  idgen.DefaultFlakeGenerator.NextID(),
		topN:   defaultTopTrips,
		duckdb: config.DefaultDuckDBConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	tmpdir, err := os.MkdirTemp("", fmt.Sprintf("tripreport-%s-", idgen.Base32ID(o.runID)))
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	db, err := duckdbx.Open(":memory:",
		duckdbx.WithMemoryLimitMB(o.duckdb.MemoryLimit),
		duckdbx.WithTempDirectory(o.duckdb.GetTempDirectory()),
		duckdbx.WithThreads(o.duckdb.Threads),
	)
	if err != nil {
		_ = os.RemoveAll(tmpdir)
		return nil, &EngineError{Op: "open", Err: err}
	}

	return &Generator{
		storage: storage,
		db:      db,
		tmpdir:  tmpdir,
		runID:   o.runID,
		topN:    o.topN,
	}, nil
}

// Close releases the engine session and removes the scratch directory.
// Safe to call more than once.
func (g *Generator) Close() error {
	g.closeOnce.Do(func() {
		var errs *multierror.Error
		if err := g.db.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("close engine session: %w", err))
		}
		if err := os.RemoveAll(g.tmpdir); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("remove scratch dir: %w", err))
		}
		g.closeErr = errs.ErrorOrNil()
	})
	return g.closeErr
}

// Run executes the full pipeline: load the trip table, compute the three
// summaries, assemble the document, and upload it. Any stage failure aborts
// the run; no partial output is written.
func (g *Generator) Run(ctx context.Context, req Request) error {
	conn, err := g.db.Conn(ctx)
	if err != nil {
		return &EngineError{Op: "acquire connection", Err: err}
	}
	defer func() { _ = conn.Close() }()

	tbl, err := g.loadTable(ctx, conn, req.InputBucket, req.InputKey)
	if err != nil {
		return err
	}
	slog.Info("Loaded trip table",
		slog.Int64("runID", g.runID),
		slog.Int64("rows", tbl.rowCount),
		slog.String("fareColumn", tbl.fareColumn))

	vendors, err := summarizeByVendor(ctx, conn, tbl)
	if err != nil {
		return err
	}

	top, err := topExpensiveTrips(ctx, conn, tbl, g.topN)
	if err != nil {
		return err
	}

	payments, err := summarizePaymentTypes(ctx, conn, tbl)
	if err != nil {
		return err
	}

	doc := BuildDocument(req.InputBucket, req.InputKey, vendors, top, payments)
	return g.writeResult(ctx, doc, req.OutputBucket, req.OutputKey)
}

// writeResult serializes the document and uploads it as a single object,
// overwriting anything already at the key.
func (g *Generator) writeResult(ctx context.Context, doc *Document, bucket, key string) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return &StorageWriteError{Bucket: bucket, Key: key, Err: err}
	}

	out := filepath.Join(g.tmpdir, "result.json")
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return &StorageWriteError{Bucket: bucket, Key: key, Err: err}
	}

	if err := g.storage.UploadObject(ctx, bucket, key, out); err != nil {
		return &StorageWriteError{Bucket: bucket, Key: key, Err: err}
	}
	return nil
}
