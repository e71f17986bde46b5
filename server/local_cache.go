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

package server

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// LocalCache persists the identity of the server node between restarts.
type LocalCache struct {
	path       string
	ServerName string
}

// LoadLocalCache loads the local cache from a file. The returned cache is
// usable even when the file is missing or unreadable.
func LoadLocalCache(path string) (*LocalCache, error) {
	state := &LocalCache{path: path}
	f, err := os.Open(path)
	if err != nil {
		return state, errors.Trace(err)
	}
	defer f.Close()
	if err = gob.NewDecoder(f).Decode(&state.ServerName); err != nil {
		return state, errors.Trace(err)
	}
	return state, nil
}

// WriteLocalCache writes the local cache to a file.
func (c *LocalCache) WriteLocalCache() error {
	if err := os.MkdirAll(filepath.Dir(c.path), os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	f, err := os.Create(c.path)
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	return errors.Trace(gob.NewEncoder(f).Encode(c.ServerName))
}
