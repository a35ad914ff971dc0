package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/DjordjeVuckovic/product-stream/internal/apperr"
	"github.com/DjordjeVuckovic/product-stream/internal/ingest"
	mw "github.com/DjordjeVuckovic/product-stream/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	GracefulShutdownTimeout = 10 * time.Second
)

type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

type OkHealthChecker struct{}

func (OkHealthChecker) Healthy(context.Context) bool {
	return true
}

// ProgressSource provides the snapshot served on the progress route.
type ProgressSource interface {
	Snapshot() ingest.StatusSnapshot
}

// Server is the status endpoint of an import run.
type Server struct {
	Echo *echo.Echo

	cfg    *Config
	health HealthChecker
	log    *slog.Logger
}

func New(cfg *Config, health HealthChecker, log *slog.Logger) *Server {
	if health == nil {
		health = OkHealthChecker{}
	}
	if log == nil {
		log = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.DisableHTTP2 = !cfg.UseHttp2

	return &Server{
		Echo:   e,
		cfg:    cfg,
		health: health,
		log:    log,
	}
}

func (s *Server) SetupMiddlewares() *Server {
	s.Echo.Use(mw.Logger(mw.WithLogger(s.log)))
	s.Echo.Use(middleware.Recover())
	return s
}

func (s *Server) SetupErrorHandler() *Server {
	s.Echo.HTTPErrorHandler = apperr.GlobalErrorHandler()
	return s
}

func (s *Server) SetupHealthChecks(path string) *Server {
	s.Echo.GET(path, func(c echo.Context) error {
		if !s.health.Healthy(c.Request().Context()) {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	return s
}

func (s *Server) SetupProgress(path string, src ProgressSource) *Server {
	s.Echo.GET(path, func(c echo.Context) error {
		return c.JSON(http.StatusOK, src.Snapshot())
	})
	return s
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Status server listening", "port", s.cfg.Port)
		errCh <- s.Echo.Start(":" + s.cfg.Port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), GracefulShutdownTimeout)
	defer cancel()

	s.log.Info("Shutting down status server...")
	if err := s.Echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
