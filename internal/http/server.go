// Package http exposes batch submission, status polling and result download
// over a gin router.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/rfpsynth/internal/config"
)

type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
}

// NewEngine builds the router with middleware and routes.
func NewEngine(cfg *config.Config, api *API) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger())
	engine.Use(CORS(cfg.AllowedOrigins))

	registerRoutes(engine, api, uploadLimit(cfg))
	return engine
}

func NewServer(cfg *config.Config, api *API) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := NewEngine(cfg, api)

	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.Port),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks until the server stops. A graceful Shutdown is not
// reported as an error.
func (s *Server) ListenAndServe() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// uploadLimit bounds a whole multipart submission: every allowed document
// at the per-file limit plus form overhead.
func uploadLimit(cfg *config.Config) int64 {
	if cfg.MaxUploadBytes <= 0 {
		return 0
	}
	return cfg.MaxUploadBytes*int64(cfg.MaxDocuments) + 1<<20
}
