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
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Required columns, looked up case-insensitively against the file schema.
// Taxi datasets are inconsistent about fare column casing (Fare_amount vs
// fare_amount), so the loader records the spelling the file actually uses.
const (
	vendorColumnName  = "VendorID"
	fareColumnName    = "Fare_amount"
	paymentColumnName = "payment_type"
)

const tripsTable = "trips"

// tripTable describes the loaded, null-dropped trip table.
type tripTable struct {
	columns       []string
	vendorColumn  string
	fareColumn    string
	paymentColumn string
	rowCount      int64
}

// loadTable downloads the Parquet object, loads it into the engine, validates
// the required columns, and drops every row containing a null in any column.
// Null rows are excluded before all three aggregations run.
func (g *Generator) loadTable(ctx context.Context, conn *sql.Conn, bucket, key string) (*tripTable, error) {
	filename, _, notFound, err := g.storage.DownloadObject(ctx, g.tmpdir, bucket, key)
	if err != nil {
		return nil, &StorageReadError{Bucket: bucket, Key: key, Err: err}
	}
	if notFound {
		return nil, &StorageReadError{Bucket: bucket, Key: key, Err: errors.New("object not found")}
	}

	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_parquet('%s')",
		tripsTable, escapeSingle(filename))
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return nil, &StorageReadError{Bucket: bucket, Key: key, Err: err}
	}

	columns, err := tableColumns(ctx, conn)
	if err != nil {
		return nil, &EngineError{Op: "describe table", Err: err}
	}

	tbl := &tripTable{columns: columns}
	if tbl.vendorColumn = findColumn(columns, vendorColumnName); tbl.vendorColumn == "" {
		return nil, &SchemaError{Column: vendorColumnName}
	}
	if tbl.fareColumn = findColumn(columns, fareColumnName); tbl.fareColumn == "" {
		return nil, &SchemaError{Column: fareColumnName}
	}
	if tbl.paymentColumn = findColumn(columns, paymentColumnName); tbl.paymentColumn == "" {
		return nil, &SchemaError{Column: paymentColumnName}
	}

	if err := dropNullRows(ctx, conn, columns); err != nil {
		return nil, &EngineError{Op: "drop null rows", Err: err}
	}

	if err := conn.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", tripsTable)).Scan(&tbl.rowCount); err != nil {
		return nil, &EngineError{Op: "count rows", Err: err}
	}

	return tbl, nil
}

func tableColumns(ctx context.Context, conn *sql.Conn) ([]string, error) {
	rows, err := conn.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position",
		tripsTable)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}

// findColumn returns the actual spelling of want within columns, matching
// case-insensitively, or "" when absent.
func findColumn(columns []string, want string) string {
	for _, c := range columns {
		if strings.EqualFold(c, want) {
			return c
		}
	}
	return ""
}

func dropNullRows(ctx context.Context, conn *sql.Conn, columns []string) error {
	preds := make([]string, len(columns))
	for i, c := range columns {
		preds[i] = quoteIdent(c) + " IS NULL"
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s", tripsTable, strings.Join(preds, " OR "))
	_, err := conn.ExecContext(ctx, stmt)
	return err
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeSingle(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
