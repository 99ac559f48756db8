// Package server hosts the HTTP surface of the thread resolver service.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/aico-ai/aico/internal/profile"
	apiv1 "github.com/aico-ai/aico/server/router/api/v1"
)

const shutdownTimeout = 10 * time.Second

// requestsPerSecond bounds each client's resolve rate. Resolution is on the
// hot path of message ingest, so the limit is generous but present.
const requestsPerSecond = 20

// Server wraps the echo instance and its route registrations.
type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile

	apiService *apiv1.APIV1Service
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(_ context.Context, instanceProfile *profile.Profile, apiService *apiv1.APIV1Service) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(requestsPerSecond),
			Burst:     requestsPerSecond * 2,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: clientIdentifier,
	}))

	s := &Server{
		echoServer: e,
		profile:    instanceProfile,
		apiService: apiService,
	}

	e.GET("/healthz", apiService.Healthz)
	e.GET("/metrics", apiService.Metrics)
	apiService.Register(e.Group("/api/v1"))

	return s, nil
}

// Start begins serving in the background. Fatal listen errors are logged;
// ErrServerClosed from a graceful shutdown is not an error.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
		}
	}()
	slog.Info("server listening", "address", address, "mode", s.profile.Mode)
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	slog.Info("server stopped")
}

// clientIdentifier rate-limits by user when the client names one, falling
// back to the remote address.
func clientIdentifier(c echo.Context) (string, error) {
	if userID := c.Request().Header.Get("X-User-ID"); userID != "" {
		return userID, nil
	}
	return c.RealIP(), nil
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Default().Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	})
}
