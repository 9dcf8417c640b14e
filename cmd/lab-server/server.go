package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/MarcoCnrqz/labconriquez/internal/config"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/analysis"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/billing"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/laboratory"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/patient"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/refrange"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/report"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/template"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/terminology"
	"github.com/MarcoCnrqz/labconriquez/internal/domain/user"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/auth"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/blobstore"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/db"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/lock"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/middleware"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/reporting"
)

const version = "0.1.0"

// routeRegistrar is implemented by every domain handler.
type routeRegistrar interface {
	RegisterRoutes(api *echo.Group)
}

type services struct {
	refranges    *refrange.Service
	templates    *template.Service
	patients     *patient.Service
	analyses     *analysis.Service
	reports      *report.Service
	loinc        *terminology.Service
	laboratories *laboratory.Service
	payments     *billing.Service
	users        *user.Service
}

func newServices(pool *pgxpool.Pool, locker lock.Locker, blobs blobstore.BlobStore,
	tokens auth.JWTConfig, cfg *config.Config, logger zerolog.Logger) *services {
	intervalRepo := refrange.NewIntervalRepoPG(pool)
	resultRepo := analysis.NewResultRepoPG(pool)

	s := &services{
		refranges: refrange.NewService(intervalRepo),
		templates: template.NewService(template.NewTemplateRepoPG(pool), template.NewPropertyRepoPG(pool), intervalRepo),
		patients:  patient.NewService(patient.NewPatientRepoPG(pool)),
	}

	withTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	gen := analysis.NewGenerator(s.templates, resultRepo, locker, cfg.GenerationLockTTL, logger)
	s.analyses = analysis.NewService(analysis.NewAnalysisRepoPG(pool), resultRepo, s.patients, s.templates, gen, withTx)

	s.reports = report.NewService(report.NewReportRepoPG(pool), s.analyses, s.patients, s.templates, logger)
	s.loinc = terminology.NewService(terminology.NewLoincRepoPG(pool))
	s.laboratories = laboratory.NewService(laboratory.NewLaboratoryRepoPG(pool), blobs, logger)
	s.payments = billing.NewService(billing.NewPaymentRepoPG(pool), logger)
	s.users = user.NewService(user.NewUserRepoPG(pool), tokens, logger)
	return s
}

func (s *services) handlers() []routeRegistrar {
	return []routeRegistrar{
		refrange.NewHandler(s.refranges),
		template.NewHandler(s.templates),
		patient.NewHandler(s.patients),
		analysis.NewHandler(s.analyses),
		report.NewHandler(s.reports),
		terminology.NewHandler(s.loinc),
		laboratory.NewHandler(s.laboratories),
		billing.NewHandler(s.payments),
		user.NewHandler(s.users),
	}
}

func rateLimitConfig(cfg *config.Config) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	return rl
}

func newEcho(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, svc *services, tokens auth.JWTConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Content-Disposition"},
	}))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.UploadLimit))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(tokens))
	} else {
		e.Use(auth.JWTMiddleware(tokens))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool, 2*time.Second))

	api := e.Group("/api/v1")
	api.Use(middleware.RateLimit(rateLimitConfig(cfg)))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/api/v1/reports/"))

	for _, h := range svc.handlers() {
		h.RegisterRoutes(api)
	}
	reporting.NewHandler(pool).RegisterRoutes(api)

	return e
}

// newLocker returns a Redis-backed locker when REDIS_URL is set, otherwise
// an in-process one. The returned func releases the client.
func newLocker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, result generation locks are process-local")
		return lock.NewMemory(), func() {}, nil
	}
	client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedis(client, "labconriquez:lock:", logger), func() { client.Close() }, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (blobstore.BlobStore, error) {
	if !cfg.UseMinio() {
		logger.Warn().Msg("MINIO_ENDPOINT not set, laboratory logos are kept in memory")
		return blobstore.NewMemory(), nil
	}
	return blobstore.NewMinio(ctx, blobstore.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}, logger)
}

// signingTokens returns the token config, generating an ephemeral key in
// development when none is configured.
func signingTokens(cfg *config.Config, logger zerolog.Logger) (auth.JWTConfig, error) {
	tokens := tokenConfig(cfg)
	if len(tokens.SigningKey) > 0 || !cfg.IsDev() {
		return tokens, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return tokens, fmt.Errorf("generate signing key: %w", err)
	}
	tokens.SigningKey = key
	logger.Warn().Msg("AUTH_SIGNING_KEY not set, using an ephemeral key; tokens will not survive a restart")
	return tokens, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env, os.Stdout)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: requests without a token are served as admin")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, poolConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	blobs, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	tokens, err := signingTokens(cfg, logger)
	if err != nil {
		return err
	}

	svc := newServices(pool, locker, blobs, tokens, cfg, logger)
	e := newEcho(cfg, logger, pool, svc, tokens)

	go svc.payments.RunOverdueSweep(ctx, cfg.OverdueSweepInterval)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
