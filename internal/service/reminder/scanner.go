package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/password-policy/internal/email"
	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/internal/service/policyconfig"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

const day = 24 * time.Hour

type Config struct {
	Interval  time.Duration
	BatchSize int
	SendRPS   float64
	SendBurst int
}

// Scanner periodically finds accounts whose passwords are approaching or
// past their expiry window and emails the reminder/expired notices the
// tenant policy asks for. One notice per account per day.
type Scanner struct {
	claims   repository.ClaimRepository
	resolver *policyconfig.Resolver
	emailSvc email.Service
	sent     *cache.Cache
	limiter  *rate.Limiter
	logger   *logger.Logger
	metrics  *metrics.Metrics
	config   Config
	now      func() time.Time
}

func NewScanner(
	claims repository.ClaimRepository,
	resolver *policyconfig.Resolver,
	emailSvc email.Service,
	config Config,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Scanner {
	if config.Interval <= 0 {
		panic("Interval must be greater than 0")
	}
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.SendRPS <= 0 {
		config.SendRPS = 1
	}
	if config.SendBurst <= 0 {
		config.SendBurst = 1
	}

	return &Scanner{
		claims:   claims,
		resolver: resolver,
		emailSvc: emailSvc,
		sent:     cache.New(24*time.Hour, time.Hour),
		limiter:  rate.NewLimiter(rate.Limit(config.SendRPS), config.SendBurst),
		logger:   logger,
		metrics:  m,
		config:   config,
		now:      time.Now,
	}
}

// Start runs sweeps until the context is cancelled.
func (s *Scanner) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil {
			s.logger.Error(err, "expiry sweep failed")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep scans every tenant once. Per-account send failures are logged and
// counted but do not abort the sweep.
func (s *Scanner) Sweep(ctx context.Context) error {
	start := s.now()

	tenants, err := s.claims.ListTenants(ctx, model.LastPasswordChangeClaimURI)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	for _, tenant := range tenants {
		if err := s.sweepTenant(ctx, tenant); err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logger.Error(err, "failed to sweep tenant", "tenant", tenant)
		}
	}

	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}
	return nil
}

func (s *Scanner) sweepTenant(ctx context.Context, tenant string) error {
	settings := s.resolver.ResolveAll(ctx, tenant)
	if !settings.EnableNotifications {
		s.logger.Debug("expiry notifications disabled", "tenant", tenant)
		return nil
	}
	if settings.ExpiryInDays <= 0 {
		return nil
	}

	leadDays := settings.ReminderLeadDays
	if leadDays > settings.ExpiryInDays {
		leadDays = settings.ExpiryInDays
	}

	// Anything changed before this cutoff is within the reminder lead
	// window or already expired.
	cutoff := s.now().Add(-time.Duration(settings.ExpiryInDays-leadDays) * day)
	records, err := s.claims.ListStaleClaims(ctx, tenant, model.LastPasswordChangeClaimURI, cutoff, s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list stale claims: %w", err)
	}

	for _, record := range records {
		if err := s.notify(ctx, tenant, record, settings); err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.logger.Error(err, "failed to notify account",
				"tenant", tenant, "username", record.Username)
			if s.metrics != nil {
				s.metrics.NoticesFailedTotal.Inc()
			}
		}
	}
	return nil
}

func (s *Scanner) notify(ctx context.Context, tenant string, record *model.ClaimRecord, settings *model.PolicySettings) error {
	now := s.now()
	expiresAt := record.ChangedAt.Add(time.Duration(settings.ExpiryInDays) * day)

	kind := model.NoticeReminder
	if !now.Before(expiresAt) {
		kind = model.NoticeExpired
	}

	dedupKey := fmt.Sprintf("%s/%s/%s", tenant, record.Username, kind)
	if _, already := s.sent.Get(dedupKey); already {
		return nil
	}

	values, err := s.claims.GetClaimValues(ctx, tenant, record.Username,
		[]string{model.EmailAddressClaimURI}, "")
	if err != nil {
		return fmt.Errorf("failed to look up email address: %w", err)
	}
	address, ok := values[model.EmailAddressClaimURI]
	if !ok || address == "" {
		s.logger.Debug("account has no email address claim, skipping notice",
			"tenant", tenant, "username", record.Username)
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	switch kind {
	case model.NoticeExpired:
		err = s.emailSvc.SendExpiredNotice(ctx, address)
	default:
		daysLeft := int(expiresAt.Sub(now).Hours() / 24)
		if daysLeft < 1 {
			daysLeft = 1
		}
		err = s.emailSvc.SendExpiryReminder(ctx, address, daysLeft)
	}
	if err != nil {
		return fmt.Errorf("failed to send %s notice: %w", kind, err)
	}

	s.sent.Set(dedupKey, struct{}{}, cache.DefaultExpiration)
	if s.metrics != nil {
		s.metrics.NoticesSentTotal.WithLabelValues(string(kind)).Inc()
	}
	s.logger.Info("sent password expiry notice",
		"tenant", tenant, "username", record.Username, "kind", string(kind))
	return nil
}
