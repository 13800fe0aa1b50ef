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

import "fmt"

// StorageReadError indicates the input object was missing, unreadable, or
// not a valid Parquet file.
type StorageReadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("storage read %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// SchemaError indicates a required column is absent from the input table.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column %q not present in input table", e.Column)
}

// StorageWriteError indicates the result document could not be uploaded.
type StorageWriteError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("storage write %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// EngineError wraps an opaque query engine failure.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("query engine %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
