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
	"fmt"
	"net/http"
	"strings"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ampscore/ampscore/base/log"
	"github.com/ampscore/ampscore/cmd/version"
	"github.com/ampscore/ampscore/common/encoding"
	"github.com/ampscore/ampscore/config"
	"github.com/ampscore/ampscore/model/panel"
	"github.com/ampscore/ampscore/storage/blob"
)

// RestServer implements the scoring REST API server.
type RestServer struct {
	*config.Settings

	HttpHost   string
	HttpPort   int
	HttpServer *http.Server
	WebService *restful.WebService

	Store      blob.Store
	panelCache *ttlcache.Cache[string, *panel.Panel]
}

// StartHttpServer starts the REST API server.
func (s *RestServer) StartHttpServer() {
	// register restful APIs
	s.CreateWebService()
	restful.DefaultContainer.Add(s.WebService)
	// register swagger spec
	specConfig := restfulspec.Config{
		WebServices: restful.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}
	restful.DefaultContainer.Add(restfulspec.NewOpenAPIService(specConfig))
	// register prometheus
	http.Handle("/metrics", promhttp.Handler())

	log.Logger().Info("start http server",
		zap.String("url", fmt.Sprintf("http://%s:%d", s.HttpHost, s.HttpPort)))
	s.HttpServer = &http.Server{Addr: fmt.Sprintf("%s:%d", s.HttpHost, s.HttpPort)}
	if err := s.HttpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Logger().Fatal("failed to start http server", zap.Error(err))
	}
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	chain.ProcessFilter(req, resp)
	if !strings.HasPrefix(req.Request.URL.Path, "/api/health") {
		log.Logger().Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
			zap.Int("status_code", resp.StatusCode()))
	}
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(LogFilter)

	// Health probes
	ws.Route(ws.GET("/health/live").To(s.getHealthLive).
		Doc("Probe the liveness of this node.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(Health{}))
	ws.Route(ws.GET("/health/ready").To(s.getHealthReady).
		Doc("Probe the readiness of this node.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(Health{}))

	// Get the panel
	ws.Route(ws.GET("/panel").To(s.getPanel).
		Doc("Get the loaded panel.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"panel"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Writes(panel.Panel{}))
	// Score observations
	ws.Route(ws.POST("/score").To(s.score).
		Doc("Score observations with the loaded panel.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"score"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Reads(ScoreRequest{}).
		Writes(ScoreResponse{}))
}

// SetPanelStore wires a blob store as the panel source. Loaded panels are
// cached and reloaded after the configured TTL.
func (s *RestServer) SetPanelStore(store blob.Store) {
	s.Store = store
	s.panelCache = ttlcache.New[string, *panel.Panel](
		ttlcache.WithTTL[string, *panel.Panel](s.Config.Server.PanelTTL),
		ttlcache.WithDisableTouchOnHit[string, *panel.Panel](),
		ttlcache.WithLoader[string, *panel.Panel](ttlcache.LoaderFunc[string, *panel.Panel](s.loadPanel)),
	)
	go s.panelCache.Start()
}

func (s *RestServer) loadPanel(c *ttlcache.Cache[string, *panel.Panel], name string) *ttlcache.Item[string, *panel.Panel] {
	start := time.Now()
	r, err := s.Store.Open(name)
	if err != nil {
		log.Logger().Error("failed to open panel", zap.String("name", name), zap.Error(err))
		return nil
	}
	defer func() {
		if err = r.Close(); err != nil {
			log.Logger().Error("failed to close panel", zap.Error(err))
		}
	}()
	var p panel.Panel
	if err = p.Unmarshal(r); err != nil {
		log.Logger().Error("failed to load panel", zap.String("name", name), zap.Error(err))
		return nil
	}
	LoadPanelSeconds.Observe(time.Since(start).Seconds())
	log.Logger().Info("loaded panel",
		zap.String("name", name),
		zap.String("seed", encoding.Hex(p.Seed)),
		zap.Int("n_features", len(p.Features)),
		zap.Bool("degraded", p.Degraded))
	return c.Set(name, &p, ttlcache.DefaultTTL)
}

// activePanel returns the panel pinned in settings or the latest copy from
// the panel store.
func (s *RestServer) activePanel() *panel.Panel {
	if s.Settings.Panel != nil {
		return s.Settings.Panel
	}
	if s.panelCache != nil {
		if item := s.panelCache.Get(s.Config.Server.PanelName); item != nil {
			return item.Value()
		}
	}
	return nil
}

// Health is the health status of the scoring server.
type Health struct {
	Ready         bool
	PanelName     string
	Degraded      bool
	BinaryVersion string
}

func (s *RestServer) health() Health {
	p := s.activePanel()
	return Health{
		Ready:         !p.Invalid(),
		PanelName:     s.Config.Server.PanelName,
		Degraded:      !p.Invalid() && p.Degraded,
		BinaryVersion: version.Version,
	}
}

func (s *RestServer) getHealthLive(_ *restful.Request, response *restful.Response) {
	Ok(response, s.health())
}

func (s *RestServer) getHealthReady(_ *restful.Request, response *restful.Response) {
	health := s.health()
	if !health.Ready {
		response.Header().Set("Access-Control-Allow-Origin", "*")
		if err := response.WriteHeaderAndEntity(http.StatusServiceUnavailable, health); err != nil {
			log.Logger().Error("failed to write json", zap.Error(err))
		}
		return
	}
	Ok(response, health)
}

func (s *RestServer) getPanel(request *restful.Request, response *restful.Response) {
	// Authorize
	if !s.auth(request, response) {
		return
	}
	p := s.activePanel()
	if p.Invalid() {
		PageNotFound(response, errors.New("no panel loaded"))
		return
	}
	Ok(response, p)
}

// Observation is one observation to score, feature values keyed by name.
type Observation map[string]float32

// ScoreRequest is the payload of the score API.
type ScoreRequest struct {
	Observations []Observation
}

// ScoreResponse carries one normalized score per observation. Positive is
// true when the score reaches the 0.5 cutpoint.
type ScoreResponse struct {
	Scores   []float32
	Positive []bool
}

func (s *RestServer) score(request *restful.Request, response *restful.Response) {
	// Authorize
	if !s.auth(request, response) {
		return
	}
	start := time.Now()
	p := s.activePanel()
	if p.Invalid() {
		ServiceUnavailable(response, errors.New("no panel loaded"))
		return
	}
	var req ScoreRequest
	if err := request.ReadEntity(&req); err != nil {
		BadRequest(response, err)
		return
	}
	if len(req.Observations) == 0 {
		BadRequest(response, errors.New("no observations"))
		return
	}
	resp := ScoreResponse{
		Scores:   make([]float32, len(req.Observations)),
		Positive: make([]bool, len(req.Observations)),
	}
	for i, observation := range req.Observations {
		score, err := p.ScoreNamed(observation)
		if err != nil {
			BadRequest(response, err)
			return
		}
		resp.Scores[i] = score
		resp.Positive[i] = score >= 0.5
	}
	ScoreSeconds.Observe(time.Since(start).Seconds())
	ScoredObservationsTotal.Add(float64(len(req.Observations)))
	Ok(response, resp)
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.Logger().Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// ServiceUnavailable returns a service unavailable error.
func ServiceUnavailable(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.Logger().Error("service unavailable", zap.Error(err))
	if err = response.WriteError(http.StatusServiceUnavailable, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.Logger().Error("failed to write json", zap.Error(err))
	}
}

func (s *RestServer) auth(request *restful.Request, response *restful.Response) bool {
	if s.Config.Server.APIKey == "" {
		return true
	}
	apikey := request.HeaderParameter("X-API-Key")
	if apikey == s.Config.Server.APIKey {
		return true
	}
	log.Logger().Error("unauthorized")
	if err := response.WriteError(http.StatusUnauthorized, fmt.Errorf("unauthorized")); err != nil {
		log.Logger().Error("failed to write error", zap.Error(err))
	}
	return false
}
