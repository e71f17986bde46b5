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
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/cmd/version"
	"github.com/ampscore/ampscore/config"
	"github.com/ampscore/ampscore/model/panel"
	"github.com/ampscore/ampscore/storage/blob"
)

var ampCommand = &cobra.Command{
	Use:   "ampscore",
	Short: "Train and serve aggregate marker panels for spatial omics.",
	Run: func(cmd *cobra.Command, args []string) {
		// Show version
		if showVersion, _ := cmd.PersistentFlags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		_ = cmd.Help()
	},
}

func init() {
	log.AddFlags(ampCommand.PersistentFlags())
	ampCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	ampCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
	ampCommand.PersistentFlags().BoolP("version", "v", false, "ampscore version")
}

// setupCommand sets the logger and loads the configuration shared by every
// subcommand. An empty configuration path falls back to defaults overridden
// by environment variables.
func setupCommand(cmd *cobra.Command) *config.Config {
	debug, _ := cmd.Flags().GetBool("debug")
	log.SetLogger(cmd.Flags(), debug)
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		log.Logger().Info("load config", zap.String("config", configPath))
	}
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	return conf
}

// savePanel writes a trained panel to a local file, or to the configured
// blob store under the configured panel name when path is empty.
func savePanel(p *panel.Panel, conf *config.Config, path string) error {
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return errors.Trace(err)
		}
		defer file.Close()
		return errors.Trace(p.Marshal(file))
	}
	store, err := blob.Connect(conf.Storage)
	if err != nil {
		return errors.Trace(err)
	}
	w, done, err := store.Create(conf.Server.PanelName)
	if err != nil {
		return errors.Trace(err)
	}
	if err = p.Marshal(w); err != nil {
		_ = w.Close()
		return errors.Trace(err)
	}
	if err = w.Close(); err != nil {
		return errors.Trace(err)
	}
	<-done
	return nil
}

// loadPanel reads a trained panel from a local file, or from the configured
// blob store under the configured panel name when path is empty.
func loadPanel(conf *config.Config, path string) (*panel.Panel, error) {
	var r io.ReadCloser
	if path != "" {
		var err error
		r, err = os.Open(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
	} else {
		store, err := blob.Connect(conf.Storage)
		if err != nil {
			return nil, errors.Trace(err)
		}
		r, err = store.Open(conf.Server.PanelName)
		if err != nil {
			return nil, errors.Trace(err)
		}
	}
	defer r.Close()
	var p panel.Panel
	if err := p.Unmarshal(r); err != nil {
		return nil, errors.Trace(err)
	}
	return &p, nil
}

func main() {
	if err := ampCommand.Execute(); err != nil {
		log.Logger().Fatal("failed to execute", zap.Error(err))
	}
}
