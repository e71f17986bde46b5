// Copyright 2025 ampscore Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package blob stores trained panels as opaque blobs on a local directory
// or an S3 compatible object store.
package blob

import (
	"io"

	"github.com/ampscore/ampscore/config"
)

// Store reads and writes named blobs. Create returns a done channel that is
// closed once the written data is fully persisted.
type Store interface {
	Open(name string) (io.ReadCloser, error)
	Create(name string) (io.WriteCloser, chan struct{}, error)
}

// Connect creates a store from the storage configuration. S3 is used when
// an endpoint is configured, the POSIX directory otherwise.
func Connect(cfg config.StorageConfig) (Store, error) {
	if cfg.S3.Endpoint != "" {
		return NewS3(cfg.S3)
	}
	return NewPOSIX(cfg.Path), nil
}
