package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/syncwire/clerk-sync/internal/audit"
	"github.com/syncwire/clerk-sync/internal/config"
	"github.com/syncwire/clerk-sync/internal/http/middleware"
	"github.com/syncwire/clerk-sync/internal/metrics"
	"github.com/syncwire/clerk-sync/internal/repository"
	"github.com/syncwire/clerk-sync/internal/service/reconcile"
	"github.com/syncwire/clerk-sync/internal/webhook"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client, logger *zap.Logger) *Server {
	// repos (MySQL)
	customersRepo := repository.NewCustomersRepository(mysqlDB)

	// repos (ClickHouse)
	deliveriesRepo := repository.NewDeliveriesRepository(clickhouseDB)

	// services
	reconcileSvc := reconcile.New(customersRepo, logger)
	recorder := audit.NewRecorder(deliveriesRepo, logger)

	// the secret may legitimately be absent in dev; the endpoint then
	// answers 500 until it is configured, the process stays up
	verifier, err := webhook.NewVerifier(cfg.Clerk.WebhookSecret, cfg.Clerk.Tolerance)
	if err != nil {
		logger.Warn("webhook verifier not configured", zap.Error(err))
		verifier = nil
	}

	var guard *webhook.ReplayGuard
	if rds != nil {
		guard = webhook.NewReplayGuard(rds, 2*cfg.Clerk.Tolerance)
	}

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:     rds,
		RPS:       cfg.RateLimit.RPS,
		KeyPrefix: "rl:ip:",
		Window:    time.Second,
	})
	adminMW := middleware.AdminKeyMiddleware(cfg.Admin.APIKey)

	// routes
	e.POST("/clerk-sync", clerkSyncHandler(verifier, reconcileSvc, guard, recorder), rlMW)

	v1 := e.Group("/v1", adminMW)
	v1.GET("/reports/deliveries", listDeliveriesHandler(deliveriesRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
