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
	"fmt"
	"math"
)

// summarizeByVendor computes avg fare, trip count, and total fare per vendor.
// Rows are ordered by VendorID so reruns over the same input are
// byte-identical.
func summarizeByVendor(ctx context.Context, conn *sql.Conn, tbl *tripTable) ([]VendorSummary, error) {
	vendor := quoteIdent(tbl.vendorColumn)
	fare := fmt.Sprintf("CAST(%s AS DOUBLE)", quoteIdent(tbl.fareColumn))

	q := fmt.Sprintf(`SELECT %s, avg(%s), count(*), sum(%s) FROM %s GROUP BY %s ORDER BY %s`,
		vendor, fare, fare, tripsTable, vendor, vendor)
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, &EngineError{Op: "vendor summary", Err: err}
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]VendorSummary, 0)
	for rows.Next() {
		var (
			vendorID any
			s        VendorSummary
		)
		if err := rows.Scan(&vendorID, &s.AvgFare, &s.NumTrips, &s.TotalFare); err != nil {
			return nil, &EngineError{Op: "vendor summary scan", Err: err}
		}
		s.VendorID = normalizeValue(vendorID)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &EngineError{Op: "vendor summary", Err: err}
	}
	return summaries, nil
}

// topExpensiveTrips returns the n highest-fare rows with all columns
// retained. Ties beyond position n fall where the engine's sort leaves them.
func topExpensiveTrips(ctx context.Context, conn *sql.Conn, tbl *tripTable, n int) ([]TripRecord, error) {
	q := fmt.Sprintf(`SELECT * FROM %s ORDER BY %s DESC LIMIT %d`,
		tripsTable, quoteIdent(tbl.fareColumn), n)
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, &EngineError{Op: "top trips", Err: err}
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &EngineError{Op: "top trips columns", Err: err}
	}

	values := make([]any, len(cols))
	scanArgs := make([]any, len(cols))
	for i := range scanArgs {
		scanArgs[i] = &values[i]
	}

	records := make([]TripRecord, 0, n)
	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, &EngineError{Op: "top trips scan", Err: err}
		}
		rec := make(TripRecord, len(cols))
		for i, c := range cols {
			rec[c] = normalizeValue(values[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &EngineError{Op: "top trips", Err: err}
	}
	return records, nil
}

// summarizePaymentTypes computes the payment type distribution: trip count,
// avg fare, and total fare per code (rounded to 2 decimals), the description
// from the fixed lookup, and each group's share of all trips. Ordered by
// trip count descending, code ascending on ties.
func summarizePaymentTypes(ctx context.Context, conn *sql.Conn, tbl *tripTable) ([]PaymentSummary, error) {
	payment := quoteIdent(tbl.paymentColumn)
	fare := fmt.Sprintf("CAST(%s AS DOUBLE)", quoteIdent(tbl.fareColumn))

	q := fmt.Sprintf(`SELECT %s, count(*) AS trip_count, round(avg(%s), 2), round(sum(%s), 2)
		FROM %s GROUP BY %s ORDER BY trip_count DESC, %s`,
		payment, fare, fare, tripsTable, payment, payment)
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, &EngineError{Op: "payment summary", Err: err}
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]PaymentSummary, 0)
	var totalTrips int64
	for rows.Next() {
		var (
			code any
			s    PaymentSummary
		)
		if err := rows.Scan(&code, &s.TripCount, &s.AvgFare, &s.TotalFare); err != nil {
			return nil, &EngineError{Op: "payment summary scan", Err: err}
		}
		s.PaymentType = normalizeValue(code)
		s.Description = describePaymentType(code)
		totalTrips += s.TripCount
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &EngineError{Op: "payment summary", Err: err}
	}

	for i := range summaries {
		summaries[i].Percentage = round2(float64(summaries[i].TripCount) / float64(totalTrips) * 100)
	}
	return summaries, nil
}

// round2 rounds to two decimal places, matching the engine-side round(x, 2).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// normalizeValue makes engine-scanned values JSON-friendly.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
