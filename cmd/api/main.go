package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/password-policy/internal/config"
	lifecyclehandler "github.com/jwalitptl/password-policy/internal/handler/lifecycle"
	policyhandler "github.com/jwalitptl/password-policy/internal/handler/policy"
	"github.com/jwalitptl/password-policy/internal/middleware"
	"github.com/jwalitptl/password-policy/internal/repository/postgres"
	"github.com/jwalitptl/password-policy/internal/router"
	"github.com/jwalitptl/password-policy/internal/service/policy"
	"github.com/jwalitptl/password-policy/internal/service/policyconfig"
	"github.com/jwalitptl/password-policy/pkg/auth"
	"github.com/jwalitptl/password-policy/pkg/event"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/messaging"
	redisbroker "github.com/jwalitptl/password-policy/pkg/messaging/redis"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	claimRepo := postgres.NewClaimRepository(base)
	tenantConfigRepo := postgres.NewTenantConfigRepository(base)

	resolver := policyconfig.NewResolver(tenantConfigRepo, appLogger)
	m := metrics.NewMetrics(prometheus.DefaultRegisterer, "password_policy", "engine")

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		brokerLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &brokerLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer broker.Close()
	}

	policySvc := policy.NewService(resolver, broker, appLogger, m)

	bus := event.NewBus(appLogger)
	bus.Register(policySvc)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMw := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(
		authMw,
		policyhandler.NewHandler(resolver, tenantConfigRepo),
		lifecyclehandler.NewHandler(bus, claimRepo),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
