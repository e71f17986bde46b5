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

// Package server exposes a trained panel over a REST API. The panel is
// loaded from a blob store and refreshed after a configurable TTL so a
// retrained panel is picked up without a restart.
package server

import (
	"context"

	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/config"
	"github.com/ampscore/ampscore/storage/blob"
)

// Server manages states of a scoring server node.
type Server struct {
	RestServer
	serverName string
	cacheFile  string
}

// NewServer creates a scoring server node.
func NewServer(conf *config.Config, cacheFile string) *Server {
	s := &Server{
		cacheFile: cacheFile,
		RestServer: RestServer{
			Settings:   config.NewSettings(),
			WebService: new(restful.WebService),
		},
	}
	s.Config = conf
	s.HttpHost = conf.Server.HttpHost
	s.HttpPort = conf.Server.HttpPort
	return s
}

// Serve starts the scoring server node.
func (s *Server) Serve() {
	// restore the server name
	state, err := LoadLocalCache(s.cacheFile)
	if err != nil {
		log.Logger().Warn("failed to load local cache", zap.String("path", s.cacheFile), zap.Error(err))
	}
	if state.ServerName == "" {
		state.ServerName = uuid.NewString()
		if err = state.WriteLocalCache(); err != nil {
			log.Logger().Fatal("failed to write local cache", zap.Error(err))
		}
	}
	s.serverName = state.ServerName
	log.Logger().Info("start server",
		zap.String("server_name", s.serverName),
		zap.String("server_host", s.HttpHost),
		zap.Int("server_port", s.HttpPort),
		zap.String("panel_name", s.Config.Server.PanelName))

	// connect to the panel store
	store, err := blob.Connect(s.Config.Storage)
	if err != nil {
		log.Logger().Fatal("failed to connect panel store", zap.Error(err))
	}
	s.SetPanelStore(store)

	s.StartHttpServer()
}

// Shutdown stops the scoring server node.
func (s *Server) Shutdown() {
	// stop http server
	if err := s.HttpServer.Shutdown(context.TODO()); err != nil {
		log.Logger().Error("failed to shutdown http server", zap.Error(err))
	}
	// stop panel reloading
	if s.panelCache != nil {
		s.panelCache.Stop()
	}
}
