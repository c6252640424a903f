package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"club-system/utils"
)

// Server is the internal ops listener, kept apart from the member facing API
// so scrapes and probes never compete with member traffic.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func NewServer(port string, redisClient *redis.Client, logger *slog.Logger) *Server {
	e := echo.New()
	e.Use(middleware.Recover())

	metricsHandler := promhttp.Handler()
	e.GET("/metrics", func(c echo.Context) error {
		metricsHandler.ServeHTTP(c.Response(), c.Request())
		return nil
	})

	e.GET("/healthz", func(c echo.Context) error {
		if err := utils.RedisHealthCheck(redisClient); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           e,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start blocks until Shutdown is called.
func (s *Server) Start() {
	s.logger.Info("ops server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("ops server failed", "error", err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
