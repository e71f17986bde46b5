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
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/viper"

	"github.com/ampscore/ampscore/model"
	"github.com/ampscore/ampscore/model/panel"
)

// Config is the configuration for panel training and the scoring server.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Train   TrainConfig   `mapstructure:"train"`
}

// ServerConfig is the configuration for the scoring server.
type ServerConfig struct {
	HttpHost  string        `mapstructure:"http_host"`
	HttpPort  int           `mapstructure:"http_port" validate:"gte=0,lte=65535"`
	APIKey    string        `mapstructure:"api_key"`
	PanelName string        `mapstructure:"panel_name" validate:"required"`
	PanelTTL  time.Duration `mapstructure:"panel_ttl" validate:"gt=0"`
}

// StorageConfig selects where trained panels are stored. S3 is used when an
// endpoint is configured, the POSIX directory otherwise.
type StorageConfig struct {
	Path string   `mapstructure:"path"`
	S3   S3Config `mapstructure:"s3"`
}

// S3Config is the configuration for the S3 panel store.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

// TrainConfig is the configuration for panel training.
type TrainConfig struct {
	TrainFraction float64        `mapstructure:"train_fraction" validate:"gt=0,lt=1"`
	MinVotes      int            `mapstructure:"min_votes" validate:"gte=1,lte=3"`
	Seed          int64          `mapstructure:"seed"`
	Jobs          int            `mapstructure:"jobs" validate:"gte=1"`
	Verbose       int            `mapstructure:"verbose" validate:"gte=0"`
	Lasso         SelectorConfig `mapstructure:"lasso"`
	Forest        SelectorConfig `mapstructure:"forest"`
	SVM           SelectorConfig `mapstructure:"svm"`
}

// SelectorConfig overrides hyper-parameters of a single selector. Zero
// values keep the built-in defaults.
type SelectorConfig struct {
	NFolds      int     `mapstructure:"n_folds" validate:"gte=0"`
	NLambdas    int     `mapstructure:"n_lambdas" validate:"gte=0"`
	NEpochs     int     `mapstructure:"n_epochs" validate:"gte=0"`
	NTrees      int     `mapstructure:"n_trees" validate:"gte=0"`
	MaxDepth    int     `mapstructure:"max_depth" validate:"gte=0"`
	MinLeafSize int     `mapstructure:"min_leaf_size" validate:"gte=0"`
	MaxFeatures int     `mapstructure:"max_features" validate:"gte=0"`
	TopK        int     `mapstructure:"top_k" validate:"gte=0"`
	Reg         float64 `mapstructure:"reg" validate:"gte=0"`
}

// GetParams converts the set values to hyper-parameters.
func (config *SelectorConfig) GetParams() model.Params {
	type paramValue struct {
		key   model.ParamName
		value interface{}
		set   bool
	}
	values := []paramValue{
		{model.NFolds, config.NFolds, config.NFolds > 0},
		{model.NLambdas, config.NLambdas, config.NLambdas > 0},
		{model.NEpochs, config.NEpochs, config.NEpochs > 0},
		{model.NTrees, config.NTrees, config.NTrees > 0},
		{model.MaxDepth, config.MaxDepth, config.MaxDepth > 0},
		{model.MinLeafSize, config.MinLeafSize, config.MinLeafSize > 0},
		{model.MaxFeatures, config.MaxFeatures, config.MaxFeatures > 0},
		{model.TopK, config.TopK, config.TopK > 0},
		{model.Reg, config.Reg, config.Reg > 0},
	}
	params := model.Params{}
	for _, value := range values {
		if value.set {
			params[value.key] = value.value
		}
	}
	return params
}

// GetTrainConfig converts the training section to a pipeline configuration.
func (config *TrainConfig) GetTrainConfig() *panel.TrainConfig {
	return panel.NewTrainConfig().
		SetTrainFraction(config.TrainFraction).
		SetMinVotes(config.MinVotes).
		SetSeed(config.Seed).
		SetJobs(config.Jobs).
		SetVerbose(config.Verbose).
		SetLassoParams(config.Lasso.GetParams()).
		SetForestParams(config.Forest.GetParams()).
		SetSVMParams(config.SVM.GetParams())
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HttpHost:  "0.0.0.0",
			HttpPort:  8087,
			PanelName: "panel.amp",
			PanelTTL:  time.Minute,
		},
		Storage: StorageConfig{
			Path: filepath.Join(os.TempDir(), "ampscore"),
		},
		Train: TrainConfig{
			TrainFraction: 2.0 / 3,
			MinVotes:      2,
			Jobs:          1,
			Verbose:       10,
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [server]
	viper.SetDefault("server.http_host", defaultConfig.Server.HttpHost)
	viper.SetDefault("server.http_port", defaultConfig.Server.HttpPort)
	viper.SetDefault("server.panel_name", defaultConfig.Server.PanelName)
	viper.SetDefault("server.panel_ttl", defaultConfig.Server.PanelTTL)
	// [storage]
	viper.SetDefault("storage.path", defaultConfig.Storage.Path)
	// [train]
	viper.SetDefault("train.train_fraction", defaultConfig.Train.TrainFraction)
	viper.SetDefault("train.min_votes", defaultConfig.Train.MinVotes)
	viper.SetDefault("train.jobs", defaultConfig.Train.Jobs)
	viper.SetDefault("train.verbose", defaultConfig.Train.Verbose)
}

type binding struct {
	key string
	env string
}

var bindings = []binding{
	{"server.http_host", "AMPSCORE_SERVER_HTTP_HOST"},
	{"server.http_port", "AMPSCORE_SERVER_HTTP_PORT"},
	{"server.api_key", "AMPSCORE_SERVER_API_KEY"},
	{"server.panel_name", "AMPSCORE_SERVER_PANEL_NAME"},
	{"storage.path", "AMPSCORE_STORAGE_PATH"},
	{"storage.s3.endpoint", "AMPSCORE_S3_ENDPOINT"},
	{"storage.s3.access_key_id", "AMPSCORE_S3_ACCESS_KEY_ID"},
	{"storage.s3.secret_access_key", "AMPSCORE_S3_SECRET_ACCESS_KEY"},
	{"storage.s3.bucket", "AMPSCORE_S3_BUCKET"},
	{"storage.s3.prefix", "AMPSCORE_S3_PREFIX"},
	{"train.seed", "AMPSCORE_TRAIN_SEED"},
	{"train.jobs", "AMPSCORE_TRAIN_JOBS"},
}

// LoadConfig loads and validates the configuration from a toml file.
// Environment variables overwrite values from the file. An empty path loads
// defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	if path != "" {
		viper.SetConfigType("toml")
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	for _, b := range bindings {
		if err := viper.BindEnv(b.key, b.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
