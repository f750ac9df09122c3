// Package preview serves the build tree on a local address.
package preview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"atelier/config"
)

// Server is a static file server over the build directory.
type Server struct {
	cfg  *config.Config
	log  *zap.Logger
	echo *echo.Echo
}

func NewServer(cfg *config.Config, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Debug("Request",
				zap.Int("status", v.Status),
				zap.String("uri", v.URI),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Static("/", cfg.Paths.BuildDir)

	return &Server{cfg: cfg, log: log, echo: e}
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if _, err := os.Stat(s.cfg.Paths.BuildDir); err != nil {
		return fmt.Errorf("build directory: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(s.cfg.Preview.Addr)
	}()
	s.log.Info("Preview running",
		zap.String("addr", s.cfg.Preview.Addr),
		zap.String("dir", s.cfg.Paths.BuildDir))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down preview: %w", err)
	}
	<-errCh
	s.log.Info("Preview stopped")
	return nil
}
