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

package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
)

// Validate checks the configuration against struct tags and cross-field
// constraints that tags cannot express.
func (config *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Trace(err)
	}
	if config.Storage.S3.Endpoint != "" && config.Storage.S3.Bucket == "" {
		return errors.New("s3 bucket is required when an s3 endpoint is set")
	}
	return nil
}
