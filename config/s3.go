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

package config

// S3Config holds S3 connection overrides. Credentials themselves come from
// the ambient AWS credential chain (env, shared config, instance role).
type S3Config struct {
	Endpoint     string `mapstructure:"endpoint"`       // custom endpoint, eg MinIO or Ceph
	Region       string `mapstructure:"region"`         // overrides the SDK-resolved region
	UsePathStyle bool   `mapstructure:"use_path_style"` // path-style addressing instead of virtual-host
	InsecureTLS  bool   `mapstructure:"insecure_tls"`   // skip cert verification for self-signed endpoints
}

// DefaultS3Config returns default S3 configuration.
func DefaultS3Config() S3Config {
	return S3Config{}
}
