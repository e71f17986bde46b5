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
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/server"
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Start a panel scoring server.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := setupCommand(cmd)
		cachePath, _ := cmd.PersistentFlags().GetString("cache-path")
		s := server.NewServer(conf, cachePath)
		// Stop server
		done := make(chan struct{})
		go func() {
			sigint := make(chan os.Signal, 1)
			signal.Notify(sigint, os.Interrupt)
			<-sigint
			s.Shutdown()
			close(done)
		}()
		// Start server
		s.Serve()
		<-done
		log.Logger().Info("stop ampscore server successfully")
	},
}

func init() {
	ampCommand.AddCommand(serveCommand)
	serveCommand.PersistentFlags().String("cache-path", "server_cache.data", "path of cache file")
}
