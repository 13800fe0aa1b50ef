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

// paymentTypeDescriptions maps the TLC payment type codes to their
// human-readable descriptions. Any code outside this table is "Other".
var paymentTypeDescriptions = map[int64]string{
	1: "Credit card",
	2: "Cash",
	3: "No charge",
	4: "Dispute",
	5: "Unknown",
	6: "Voided trip",
}

const paymentTypeOther = "Other"

// describePaymentType resolves a payment type value as scanned from the
// engine into its description. Codes arrive as whatever integer width the
// Parquet column used, occasionally as a float.
func describePaymentType(v any) string {
	code, ok := toInt64(v)
	if !ok {
		return paymentTypeOther
	}
	desc, ok := paymentTypeDescriptions[code]
	if !ok {
		return paymentTypeOther
	}
	return desc
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case int:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case float64:
		if n == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	case float32:
		if float64(n) == float64(int64(n)) {
			return int64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}
