// Package server exposes the statistics engine over HTTP: message ingest,
// the query views, and recalculation triggers.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/statbot-io/statbot/internal/conf"
	"github.com/statbot-io/statbot/internal/directory"
	"github.com/statbot-io/statbot/internal/errors"
	"github.com/statbot-io/statbot/internal/history"
	"github.com/statbot-io/statbot/internal/ingest"
	"github.com/statbot-io/statbot/internal/query"
	"github.com/statbot-io/statbot/internal/recalc"
)

// Service wires the HTTP surface to the engine components.
type Service struct {
	cfg      *conf.Config
	recorder *ingest.Recorder
	queries  *query.Engine
	recalc   *recalc.Service
	dir      directory.Directory
	source   *history.MemorySource

	router *gin.Engine
	server *http.Server
}

// NewService builds the router. The history source is appended to on ingest
// so that recalculation replays the same stream the live path saw.
func NewService(cfg *conf.Config, recorder *ingest.Recorder, queries *query.Engine, rc *recalc.Service, dir directory.Directory, source *history.MemorySource) *Service {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	if err := router.SetTrustedProxies(nil); err != nil {
		log.Err(err).Msg("Failed to set trusted proxies")
	}

	router.Use(
		errors.RecoveryMiddleware(),
		errors.ErrorHandlerMiddleware(),
		gin.LoggerWithWriter(log.Logger, "/health"),
	)

	s := &Service{
		cfg:      cfg,
		recorder: recorder,
		queries:  queries,
		recalc:   rc,
		dir:      dir,
		source:   source,
		router:   router,
	}
	s.initRouter()
	return s
}

// ListenAndServe blocks serving HTTP on the configured address.
func (s *Service) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.router,
	}

	log.Info().Msg("Starting HTTP server on " + s.cfg.HTTPAddr)
	return s.server.ListenAndServe()
}

// Stop shuts the HTTP server down gracefully.
func (s *Service) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		log.Debug().Err(err).Msg("Failed to shutdown HTTP server")
		return nil
	}

	log.Info().Msg("HTTP server stopped")
	return nil
}

// GetRouter exposes the router for tests.
func (s *Service) GetRouter() *gin.Engine {
	return s.router
}
