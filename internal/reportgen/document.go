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

import "path"

// TripRecord is one full row of the input table, all columns retained.
type TripRecord map[string]any

// VendorSummary is the per-vendor aggregate row.
type VendorSummary struct {
	VendorID  any     `json:"VendorID"`
	AvgFare   float64 `json:"avg_fare"`
	NumTrips  int64   `json:"num_trips"`
	TotalFare float64 `json:"total_fare"`
}

// PaymentSummary is the per-payment-type aggregate row.
type PaymentSummary struct {
	PaymentType any     `json:"payment_type"`
	TripCount   int64   `json:"trip_count"`
	AvgFare     float64 `json:"avg_fare"`
	TotalFare   float64 `json:"total_fare"`
	Description string  `json:"payment_type_desc"`
	Percentage  float64 `json:"percentage"`
}

// Document is the report uploaded to object storage. It is assembled once
// and never updated.
type Document struct {
	DataFile     string           `json:"data_file"`
	SourceURL    string           `json:"source_url"`
	DataSummary  []VendorSummary  `json:"data_summary"`
	TopTrips     []TripRecord     `json:"top_10_most_expensive_trips"`
	PaymentTypes []PaymentSummary `json:"payment_types"`
}

// BuildDocument assembles the result document from the three summaries.
func BuildDocument(inputBucket, inputKey string, vendors []VendorSummary, top []TripRecord, payments []PaymentSummary) *Document {
	if vendors == nil {
		vendors = []VendorSummary{}
	}
	if top == nil {
		top = []TripRecord{}
	}
	if payments == nil {
		payments = []PaymentSummary{}
	}
	return &Document{
		DataFile:     path.Base(inputKey),
		SourceURL:    "s3://" + inputBucket + "/" + inputKey,
		DataSummary:  vendors,
		TopTrips:     top,
		PaymentTypes: payments,
	}
}
