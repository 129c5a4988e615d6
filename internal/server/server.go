// Package server exposes the converter over HTTP: upload XML files, get a
// workbook back.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/converter"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/nfe"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/profile"
)

const shutdownTimeout = 15 * time.Second

// Server is the HTTP conversion service.
type Server struct {
	cfg      *config.MainConfig
	conv     *converter.Converter
	formats  nfe.FormatConfig
	profiles *profile.Manager
	log      *zap.Logger
	engine   *gin.Engine
}

// New builds the service. profiles may be nil, in which case requests can
// only use an uploaded mapping or the default one.
func New(cfg *config.MainConfig, profiles *profile.Manager, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	formats, err := cfg.FormatConfig()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		conv:     converter.New(converter.Options{BatchSize: cfg.BatchSize}, log.Named("converter")),
		formats:  formats,
		profiles: profiles,
		log:      log,
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger(s.log.Named("http")))

	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	v1.POST("/convert", s.convert)
	v1.GET("/profiles", s.listProfiles)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Port,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
