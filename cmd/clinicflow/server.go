package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicflow/internal/config"
	"github.com/ehr/clinicflow/internal/domain/department"
	"github.com/ehr/clinicflow/internal/domain/linkage"
	"github.com/ehr/clinicflow/internal/domain/physio"
	"github.com/ehr/clinicflow/internal/domain/scheduling"
	"github.com/ehr/clinicflow/internal/platform/auth"
	"github.com/ehr/clinicflow/internal/platform/db"
	"github.com/ehr/clinicflow/internal/platform/events"
	"github.com/ehr/clinicflow/internal/platform/metrics"
	"github.com/ehr/clinicflow/internal/platform/middleware"
)

const shutdownTimeout = 10 * time.Second

// newEcho builds the server with global middleware and the public endpoints.
// reg may be nil when metrics are disabled.
func newEcho(cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", "If-Match", middleware.RequestIDHeader},
		ExposeHeaders: []string{"ETag", "Last-Modified", middleware.RequestIDHeader},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(&jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if reg != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}
	return e
}

// app holds the wired domain services.
type app struct {
	scheduling *scheduling.Service
	physio     *physio.Service
	linkage    *linkage.Service
}

func newApp(pool db.Beginner, publisher events.Publisher, m *metrics.ClinicMetrics, logger zerolog.Logger) *app {
	var observer department.Observer
	if m != nil {
		observer = m
	}
	resolver := department.NewResolver(logger.With().Str("component", "department").Logger(), observer)

	sched := scheduling.NewService(scheduling.NewAppointmentRepoPG(pool), resolver, publisher,
		logger.With().Str("component", "scheduling").Logger())
	sched.SetMetrics(m)

	evals := physio.NewEvaluationRepoPG(pool)
	plans := physio.NewTreatmentPlanRepoPG(pool)
	ph := physio.NewService(evals, plans, logger.With().Str("component", "physio").Logger())

	link := linkage.NewService(db.NewTransactor(pool), sched, evals, plans,
		logger.With().Str("component", "linkage").Logger())
	link.SetMetrics(m)

	return &app{scheduling: sched, physio: ph, linkage: link}
}

func (a *app) registerRoutes(api *echo.Group, retryAttempts int) {
	scheduling.NewHandler(a.scheduling).RegisterRoutes(api)
	physio.NewHandler(a.physio).RegisterRoutes(api)
	linkage.NewHandler(a.linkage, retryAttempts).RegisterRoutes(api)
}

// newPublisher fans events out to the log and, when REDIS_URL is set, to a
// Redis stream. The returned func releases the Redis client.
func newPublisher(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (events.Publisher, func(), error) {
	logPub := events.NewLogPublisher(logger)
	if cfg.RedisURL == "" {
		return logPub, func() {}, nil
	}
	client, err := events.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("stream", cfg.EventStream).Msg("publishing appointment events to redis")
	return events.Multi{logPub, events.NewRedisPublisher(client, cfg.EventStream)}, func() { client.Close() }, nil
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "clinicflow",
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	publisher, closePublisher, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	var reg *prometheus.Registry
	var m *metrics.ClinicMetrics
	if cfg.MetricsEnabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.NewClinicMetrics(reg)
	}

	e := newEcho(cfg, logger, reg)
	e.GET("/health/db", db.HealthHandler(pool, func() *db.PoolStats { return db.GetPoolStats(pool) }))
	newApp(pool, publisher, m, logger).registerRoutes(e.Group("/api/v1"), cfg.ConflictRetryAttempts)

	return serve(ctx, e, ":"+cfg.Port, logger)
}

func serve(ctx context.Context, e *echo.Echo, addr string, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
