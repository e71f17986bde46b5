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
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/ampscore/ampscore/model"
)

func TestUnmarshal(t *testing.T) {
	data, err := os.ReadFile("config.toml.template")
	assert.NoError(t, err)
	text := string(data)
	text = strings.Replace(text, "api_key = \"\"", "api_key = \"19260817\"", -1)
	viper.SetConfigType("toml")
	err = viper.ReadConfig(strings.NewReader(text))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)

	// [server]
	assert.Equal(t, "0.0.0.0", config.Server.HttpHost)
	assert.Equal(t, 8087, config.Server.HttpPort)
	assert.Equal(t, "19260817", config.Server.APIKey)
	assert.Equal(t, "panel.amp", config.Server.PanelName)
	assert.Equal(t, time.Minute, config.Server.PanelTTL)
	// [storage]
	assert.Equal(t, "/tmp/ampscore", config.Storage.Path)
	assert.Empty(t, config.Storage.S3.Endpoint)
	assert.Empty(t, config.Storage.S3.Bucket)
	// [train]
	assert.Equal(t, 0.667, config.Train.TrainFraction)
	assert.Equal(t, 2, config.Train.MinVotes)
	assert.Equal(t, int64(0), config.Train.Seed)
	assert.Equal(t, 1, config.Train.Jobs)
	assert.Equal(t, 10, config.Train.Verbose)
	// [train.lasso]
	assert.Equal(t, model.Params{}, config.Train.Lasso.GetParams())
	// [train.forest]
	assert.Equal(t, model.Params{}, config.Train.Forest.GetParams())
	// [train.svm]
	assert.Equal(t, model.Params{}, config.Train.SVM.GetParams())
}

func TestSetDefault(t *testing.T) {
	setDefault()
	err := viper.ReadConfig(strings.NewReader(""))
	assert.NoError(t, err)
	var config Config
	err = viper.Unmarshal(&config)
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), &config)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	config, err := LoadConfig("")
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

type environmentVariable struct {
	key   string
	value string
}

func TestBindEnv(t *testing.T) {
	variables := []environmentVariable{
		{"AMPSCORE_SERVER_HTTP_HOST", "<server_http_host>"},
		{"AMPSCORE_SERVER_HTTP_PORT", "123"},
		{"AMPSCORE_SERVER_API_KEY", "<server_api_key>"},
		{"AMPSCORE_SERVER_PANEL_NAME", "<server_panel_name>"},
		{"AMPSCORE_STORAGE_PATH", "<storage_path>"},
		{"AMPSCORE_S3_ENDPOINT", "minio:9000"},
		{"AMPSCORE_S3_ACCESS_KEY_ID", "<access_key_id>"},
		{"AMPSCORE_S3_SECRET_ACCESS_KEY", "<secret_access_key>"},
		{"AMPSCORE_S3_BUCKET", "panels"},
		{"AMPSCORE_S3_PREFIX", "<s3_prefix>"},
		{"AMPSCORE_TRAIN_SEED", "789"},
		{"AMPSCORE_TRAIN_JOBS", "4"},
	}
	for _, variable := range variables {
		err := os.Setenv(variable.key, variable.value)
		assert.NoError(t, err)
	}

	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)
	assert.Equal(t, "<server_http_host>", config.Server.HttpHost)
	assert.Equal(t, 123, config.Server.HttpPort)
	assert.Equal(t, "<server_api_key>", config.Server.APIKey)
	assert.Equal(t, "<server_panel_name>", config.Server.PanelName)
	assert.Equal(t, "<storage_path>", config.Storage.Path)
	assert.Equal(t, "minio:9000", config.Storage.S3.Endpoint)
	assert.Equal(t, "<access_key_id>", config.Storage.S3.AccessKeyID)
	assert.Equal(t, "<secret_access_key>", config.Storage.S3.SecretAccessKey)
	assert.Equal(t, "panels", config.Storage.S3.Bucket)
	assert.Equal(t, "<s3_prefix>", config.Storage.S3.Prefix)
	assert.Equal(t, int64(789), config.Train.Seed)
	assert.Equal(t, 4, config.Train.Jobs)

	// check default values
	assert.Equal(t, time.Minute, config.Server.PanelTTL)
	assert.Equal(t, 2, config.Train.MinVotes)
}
