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

package cloudstorage

import (
	"context"

	"github.com/cardinalhq/tripreport/config"
	"github.com/cardinalhq/tripreport/internal/awsclient"
)

// Client provides a unified interface for object storage operations.
type Client interface {
	// DownloadObject downloads an object from storage to a local file.
	// Returns the temp filename, size, whether the object was not found, and error.
	DownloadObject(ctx context.Context, tmpdir, bucket, key string) (filename string, size int64, notFound bool, err error)

	// UploadObject uploads a local file to storage, overwriting any existing
	// object at that key.
	UploadObject(ctx context.Context, bucket, key, sourceFilename string) error
}

// NewS3Client creates a storage client backed by S3 (or an S3-compatible
// endpoint such as MinIO, per the config).
func NewS3Client(ctx context.Context, mgr *awsclient.Manager, cfg config.S3Config) (Client, error) {
	var opts []awsclient.S3Option
	if cfg.Region != "" {
		opts = append(opts, awsclient.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsclient.WithEndpoint(cfg.Endpoint))
	}
	if cfg.UsePathStyle {
		opts = append(opts, awsclient.WithPathStyle())
	}
	if cfg.InsecureTLS {
		opts = append(opts, awsclient.WithInsecureTLS())
	}
	return &s3Client{awsS3Client: mgr.GetS3(opts...)}, nil
}
