package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/password-policy/internal/config"
	"github.com/jwalitptl/password-policy/internal/email"
	"github.com/jwalitptl/password-policy/internal/repository/postgres"
	"github.com/jwalitptl/password-policy/internal/service/policyconfig"
	"github.com/jwalitptl/password-policy/internal/service/reminder"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

// env overrides for knobs that differ between worker deployments
type workerEnv struct {
	ReminderInterval  time.Duration `envconfig:"REMINDER_INTERVAL"`
	ReminderBatchSize int           `envconfig:"REMINDER_BATCH_SIZE"`
	MetricsPort       int           `envconfig:"METRICS_PORT" default:"9091"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	var env workerEnv
	if err := envconfig.Process("policy", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to process environment overrides")
	}
	if env.ReminderInterval > 0 {
		cfg.Reminder.Interval = env.ReminderInterval
	}
	if env.ReminderBatchSize > 0 {
		cfg.Reminder.BatchSize = env.ReminderBatchSize
	}
	if cfg.Reminder.Interval <= 0 {
		cfg.Reminder.Interval = time.Hour
	}
	if cfg.Reminder.BatchSize <= 0 {
		cfg.Reminder.BatchSize = 500
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
	emailSvc := email.NewSMTPService(email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})

	m := metrics.NewMetrics(prometheus.DefaultRegisterer, "password_policy", "reminder")
	scanner := reminder.NewScanner(claimRepo, resolver, emailSvc, reminder.Config{
		Interval:  cfg.Reminder.Interval,
		BatchSize: cfg.Reminder.BatchSize,
		SendRPS:   cfg.Reminder.SendRPS,
		SendBurst: cfg.Reminder.SendBurst,
	}, appLogger, m)

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", env.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Dur("interval", cfg.Reminder.Interval).
		Int("batch_size", cfg.Reminder.BatchSize).
		Msg("starting expiry reminder scanner")
	scanner.Start(ctx)

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to stop metrics server")
	}
}
