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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/tripreport/internal/cloudstorage"
	"github.com/cardinalhq/tripreport/internal/idgen"
)

// createTestTripsParquetFile writes rows to a Parquet file under dir.
// The schema is built from the first row; keys missing from later rows
// become nulls.
func createTestTripsParquetFile(t *testing.T, dir string, rows []map[string]any) string {
	t.Helper()

	if len(rows) == 0 {
		t.Fatal("rows must not be empty")
	}

	nodes := make(map[string]parquet.Node)
	for key, value := range rows[0] {
		var node parquet.Node
		switch value.(type) {
		case int64:
			node = parquet.Optional(parquet.Int(64))
		case string:
			node = parquet.Optional(parquet.String())
		case float64:
			node = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		default:
			t.Fatalf("Unsupported type %T for key %s", value, key)
		}
		nodes[key] = node
	}

	schema := parquet.NewSchema("trips", parquet.Group(nodes))

	require.NoError(t, os.MkdirAll(dir, 0o755))
	f, err := os.CreateTemp(dir, "trips-*.parquet")
	require.NoError(t, err)

	writer := parquet.NewGenericWriter[map[string]any](f, schema)
	for _, row := range rows {
		_, err := writer.Write([]map[string]any{row})
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	require.NoError(t, f.Close())

	return f.Name()
}

func tripRow(vendor string, fare float64, payment int64) map[string]any {
	return map[string]any{
		"VendorID":     vendor,
		"Fare_amount":  fare,
		"payment_type": payment,
	}
}

// putObject places a local file into the filesystem-backed storage at
// bucket/key.
func putObject(t *testing.T, base, bucket, key, filename string) {
	t.Helper()
	client := cloudstorage.NewFileClient(base)
	require.NoError(t, client.UploadObject(context.Background(), bucket, key, filename))
}

func runReport(t *testing.T, base string, req Request, opts ...Option) error {
	t.Helper()
	gen, err := New(cloudstorage.NewFileClient(base), opts...)
	require.NoError(t, err)
	defer func() { require.NoError(t, gen.Close()) }()
	return gen.Run(context.Background(), req)
}

func readReport(t *testing.T, base, bucket, key string) map[string]any {
	t.Helper()
	payload, err := os.ReadFile(filepath.Join(base, bucket, key))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(payload, &doc))
	return doc
}

var defaultRequest = Request{
	InputBucket:  "in-bucket",
	InputKey:     "data/trips.parquet",
	OutputBucket: "out-bucket",
	OutputKey:    "reports/summary.json",
}

func TestRunEndToEnd(t *testing.T) {
	base := t.TempDir()
	fixture := createTestTripsParquetFile(t, t.TempDir(), []map[string]any{
		tripRow("V1", 10, 1),
		tripRow("V1", 20, 1),
		tripRow("V1", 30, 2),
		tripRow("V2", 5, 1),
		tripRow("V2", 15, 2),
	})
	putObject(t, base, defaultRequest.InputBucket, defaultRequest.InputKey, fixture)

	require.NoError(t, runReport(t, base, defaultRequest))

	doc := readReport(t, base, defaultRequest.OutputBucket, defaultRequest.OutputKey)

	// Exactly the expected top-level keys.
	assert.Len(t, doc, 5)
	assert.Contains(t, doc, "data_file")
	assert.Contains(t, doc, "source_url")
	assert.Contains(t, doc, "data_summary")
	assert.Contains(t, doc, "top_10_most_expensive_trips")
	assert.Contains(t, doc, "payment_types")

	assert.Equal(t, "trips.parquet", doc["data_file"])
	assert.Equal(t, "s3://in-bucket/data/trips.parquet", doc["source_url"])

	summary := doc["data_summary"].([]any)
	require.Len(t, summary, 2)
	v1 := summary[0].(map[string]any)
	assert.Equal(t, "V1", v1["VendorID"])
	assert.InDelta(t, 20.0, v1["avg_fare"], 0.0001)
	assert.EqualValues(t, 3, v1["num_trips"])
	assert.InDelta(t, 60.0, v1["total_fare"], 0.0001)
	v2 := summary[1].(map[string]any)
	assert.Equal(t, "V2", v2["VendorID"])
	assert.InDelta(t, 10.0, v2["avg_fare"], 0.0001)
	assert.EqualValues(t, 2, v2["num_trips"])
	assert.InDelta(t, 20.0, v2["total_fare"], 0.0001)

	top := doc["top_10_most_expensive_trips"].([]any)
	require.Len(t, top, 5)
	first := top[0].(map[string]any)
	assert.InDelta(t, 30.0, first["Fare_amount"], 0.0001)
	// Full rows are retained, not just the fare.
	assert.Equal(t, "V1", first["VendorID"])
	assert.Contains(t, first, "payment_type")
}

func TestRunTopTripsLimit(t *testing.T) {
	rows := make([]map[string]any, 0, 12)
	for i := 1; i <= 12; i++ {
		rows = append(rows, tripRow("V1", float64(i), 1))
	}
	base := t.TempDir()
	fixture := createTestTripsParquetFile(t, t.TempDir(), rows)
	putObject(t, base, defaultRequest.InputBucket, defaultRequest.InputKey, fixture)

	require.NoError(t, runReport(t, base, defaultRequest))

	doc := readReport(t, base, defaultRequest.OutputBucket, defaultRequest.OutputKey)
	top := doc["top_10_most_expensive_trips"].([]any)
	require.Len(t, top, 10)

	// Fares 12 down to 3, inclusive.
	for i, rec := range top {
		fare := rec.(map[string]any)["Fare_amount"].(float64)
		assert.InDelta(t, float64(12-i), fare, 0.0001)
	}
}

func TestRunTopTripsConfigurable(t *testing.T) {
	rows := []map[string]any{
		tripRow("V1", 1, 1),
		tripRow("V1", 2, 1),
		tripRow("V1", 3, 1),
	}
	base := t.TempDir()
	fixture := createTestTripsParquetFile(t, t.TempDir(), rows)
	putObject(t, base, defaultRequest.InputBucket, defaultRequest.InputKey, fixture)

	require.NoError(t, runReport(t, base, defaultRequest, WithTopTrips(2)))

	doc := readReport(t, base, defaultRequest.OutputBucket, defaultRequest.OutputKey)
	assert.Len(t, doc["top_10_most_expensive_trips"].([]any), 2)
}

func TestRunPaymentDistribution(t *testing.T) {
	base := t.TempDir()
	fixture := createTestTripsParquetFile(t, t.TempDir(), []map[string]any{
		tripRow("V1", 10, 1),
		tripRow("V1", 20, 1),
		tripRow("V1", 30, 2),
	})
	putObject(t, base, defaultRequest.InputBucket, defaultRequest.InputKey, fixture)

	require.NoError(t, runReport(t, base, defaultRequest))

	doc := readReport(t, base, defaultRequest.OutputBucket, defaultRequest.OutputKey)
	payments := doc["payment_types"].([]any)
	require.Len(t, payments, 2)

	credit := payments[0].(map[string]any)
	assert.EqualValues(t, 1, credit["payment_type"])
	assert.EqualValues(t, 2, credit["trip_count"])
	assert.Equal(t, "Credit card", credit["payment_type_desc"])
	assert.InDelta(t, 66.67, credit["percentage"], 0.0001)
	assert.InDelta(t, 15.0, credit["avg_fare"], 0.0001)
	assert.InDelta(t, 30.0, credit["total_fare"], 0.0001)

	cash := payments[1].(map[string]any)
	assert.EqualValues(t, 2, cash["payment_type"])
	assert.EqualValues(t, 1, cash["trip_count"])
	assert.Equal(t, "Cash", cash["payment_type_desc"])
	assert.InDelta(t, 33.33, cash["percentage"], 0.0001)

	// Percentages sum to ~100.
	var sum float64
	for _, p := range payments {
		sum += p.(map[string]any)["percentage"].(float64)
	}
	assert.InDelta(t, 100.0, sum, 0.01)
}

func TestRunUnknownPaymentCodeIsOther(t *testing.T) {
	base := t.TempDir()
	fixture := createTestTripsParquetFile(t, t.TempDir(), []map[string]any{
		tripRow("V1", 10, 9),
	})
	putObject(t, base, defaultRequest.InputBucket, defaultRequest.InputKey, fixture)

	require.NoError(t, runReport(t, base, defaultRequest))

	doc := readReport(t, base, defaultRequest.OutputBucket, defaultRequest.OutputKey)
	payments := doc["payment_types"].([]any)
	require.Len(t, payments, 1)
	assert.Equal(t, "Other", payments[0].(map[string]any)["payment_type_desc"])
}

func TestRunDropsNullRows(t *testing.T) {
	rows := []map[string]any{
		tripRow("V1", 10, 1),
		tripRow("V1", 99, 1),
		tripRow("V2", 20, 2),
	}
	// Highest fare in the file, but the payment type is null, so the row is
	// excluded before any aggregation.
	rows[1] = map[string]any{
		"VendorID":    "V1",
		"Fare_amount": float64(99),
	}
	base := t.TempDir()
	fixture := createTestTripsParquetFile(t, t.TempDir(), rows)
	putObject(t, base, defaultRequest.InputBucket, defaultRequest.InputKey, fixture)

	require.NoError(t, runReport(t, base, defaultRequest))

	doc := readReport(t, base, defaultRequest.OutputBucket, defaultRequest.OutputKey)
	top := doc["top_10_most_expensive_trips"].([]any)
	require.Len(t, top, 2)
	assert.InDelta(t, 20.0, top[0].(map[string]any)["Fare_amount"], 0.0001)

	summary := doc["data_summary"].([]any)
	require.Len(t, summary, 2)
	assert.EqualValues(t, 1, summary[0].(map[string]any)["num_trips"])
}

func TestRunLowercaseFareColumn(t *testing.T) {
	base := t.TempDir()
	fixture := createTestTripsParquetFile(t, t.TempDir(), []map[string]any{
		{"VendorID": "V1", "fare_amount": float64(12), "payment_type": int64(2)},
	})
	putObject(t, base, defaultRequest.InputBucket, defaultRequest.InputKey, fixture)

	require.NoError(t, runReport(t, base, defaultRequest))

	doc := readReport(t, base, defaultRequest.OutputBucket, defaultRequest.OutputKey)
	summary := doc["data_summary"].([]any)
	require.Len(t, summary, 1)
	assert.InDelta(t, 12.0, summary[0].(map[string]any)["avg_fare"], 0.0001)
}

func TestRunMissingColumnIsSchemaError(t *testing.T) {
	base := t.TempDir()
	fixture := createTestTripsParquetFile(t, t.TempDir(), []map[string]any{
		{"VendorID": "V1", "Fare_amount": float64(10)},
	})
	putObject(t, base, defaultRequest.InputBucket, defaultRequest.InputKey, fixture)

	err := runReport(t, base, defaultRequest)
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "payment_type", schemaErr.Column)

	// No partial output.
	_, statErr := os.Stat(filepath.Join(base, defaultRequest.OutputBucket, defaultRequest.OutputKey))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingObjectIsStorageReadError(t *testing.T) {
	base := t.TempDir()

	err := runReport(t, base, defaultRequest)
	var readErr *StorageReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, defaultRequest.InputBucket, readErr.Bucket)
	assert.Equal(t, defaultRequest.InputKey, readErr.Key)
}

func TestRunIsIdempotent(t *testing.T) {
	base := t.TempDir()
	fixture := createTestTripsParquetFile(t, t.TempDir(), []map[string]any{
		tripRow("V2", 15, 2),
		tripRow("V1", 10, 1),
		tripRow("V1", 30, 1),
	})
	putObject(t, base, defaultRequest.InputBucket, defaultRequest.InputKey, fixture)

	require.NoError(t, runReport(t, base, defaultRequest))
	first, err := os.ReadFile(filepath.Join(base, defaultRequest.OutputBucket, defaultRequest.OutputKey))
	require.NoError(t, err)

	require.NoError(t, runReport(t, base, defaultRequest))
	second, err := os.ReadFile(filepath.Join(base, defaultRequest.OutputBucket, defaultRequest.OutputKey))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScratchDirNamedAfterRunID(t *testing.T) {
	gen, err := New(cloudstorage.NewFileClient(t.TempDir()), WithRunID(1234))
	require.NoError(t, err)
	defer func() { require.NoError(t, gen.Close()) }()

	name := filepath.Base(gen.tmpdir)
	assert.True(t, strings.HasPrefix(name, "tripreport-"+idgen.Base32ID(1234)+"-"),
		"scratch dir %q should carry the base32 run name", name)
}

func TestCloseIsIdempotent(t *testing.T) {
	gen, err := New(cloudstorage.NewFileClient(t.TempDir()))
	require.NoError(t, err)

	require.NoError(t, gen.Close())
	require.NoError(t, gen.Close())
}
