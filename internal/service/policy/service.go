package policy

import (
	"context"
	"strconv"
	"time"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/service/policyconfig"
	"github.com/jwalitptl/password-policy/pkg/errors"
	"github.com/jwalitptl/password-policy/pkg/logger"
	"github.com/jwalitptl/password-policy/pkg/messaging"
	"github.com/jwalitptl/password-policy/pkg/metrics"
)

// Minimum lifetime is compared in whole days; fractional days are not
// supported. The multiply is done in int64 so a pathological day count
// cannot overflow.
const millisPerDay = int64(86_400_000)

// PasswordChangedChannel carries post-change fan-out messages.
const PasswordChangedChannel = "password.changed"

// Service evaluates credential lifecycle events against the password aging
// policy and keeps the last-changed claim current. It holds no mutable
// state and is safe for concurrent use; racing events for the same account
// rely on the claim store's own per-key consistency.
type Service struct {
	resolver *policyconfig.Resolver
	broker   messaging.Broker
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService wires the evaluator. broker may be nil to disable post-change
// fan-out.
func NewService(resolver *policyconfig.Resolver, broker messaging.Broker, logger *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		resolver: resolver,
		broker:   broker,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Name implements event.Handler.
func (s *Service) Name() string {
	return model.HandlerName
}

// Handle implements event.Handler. Events with kinds outside the recognized
// set are ignored without error.
func (s *Service) Handle(ctx context.Context, event *model.LifecycleEvent) error {
	switch event.Kind {
	case model.KindPreUpdateCredential:
		return s.checkMinimumLifetime(ctx, event)
	case model.KindPostUpdateCredential, model.KindPostUpdateCredentialByAdmin:
		return s.stampLastChanged(ctx, event)
	default:
		return nil
	}
}

// checkMinimumLifetime rejects an owner-initiated change attempted before
// the configured minimum password lifetime has elapsed. It mutates nothing;
// the claim is only stamped once the change has actually succeeded.
func (s *Service) checkMinimumLifetime(ctx context.Context, event *model.LifecycleEvent) error {
	nowMillis := s.now().UnixMilli()

	values, err := event.Claims.GetClaimValues(ctx, event.Username,
		[]string{model.LastPasswordChangeClaimURI}, "")
	if err != nil {
		// Fail closed: a store outage must not let a change bypass the
		// policy.
		s.countEvaluation(event.Kind, "failed")
		s.countStoreFailure("read")
		return errors.StoreReadFailure(err)
	}

	var lastMillis int64
	if raw, ok := values[model.LastPasswordChangeClaimURI]; ok && raw != "" {
		lastMillis, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.countEvaluation(event.Kind, "failed")
			s.countStoreFailure("read")
			return errors.StoreReadFailure(err)
		}
	}
	// A missing claim leaves lastMillis at 0: the account is treated as
	// infinitely old and any minimum lifetime passes.

	minLifetimeDays := int64(s.resolver.ResolveMinLifetimeDays(ctx, event.TenantDomain))
	elapsed := nowMillis - lastMillis
	if elapsed < minLifetimeDays*millisPerDay {
		s.countEvaluation(event.Kind, "rejected")
		if s.metrics != nil {
			s.metrics.PolicyViolationsTotal.Inc()
		}
		return errors.PolicyViolation()
	}

	s.logger.Debug("password change allowed",
		"tenant", event.TenantDomain,
		"username", event.Username,
		"elapsed_ms", elapsed,
		"min_lifetime_days", minLifetimeDays)
	s.countEvaluation(event.Kind, "allowed")
	return nil
}

// stampLastChanged records the current wall clock as the account's
// last-changed claim. Exactly one claim key is written, with a nil profile
// filter. Re-delivery simply overwrites with the same or a later value.
func (s *Service) stampLastChanged(ctx context.Context, event *model.LifecycleEvent) error {
	changedAt := s.now().UnixMilli()
	claims := map[string]string{
		model.LastPasswordChangeClaimURI: strconv.FormatInt(changedAt, 10),
	}

	if err := event.Claims.SetClaimValues(ctx, event.Username, claims, ""); err != nil {
		s.countEvaluation(event.Kind, "failed")
		s.countStoreFailure("write")
		return errors.StoreWriteFailure(err)
	}

	s.logger.Debug("stamped last password change claim",
		"tenant", event.TenantDomain,
		"username", event.Username,
		"changed_at_ms", changedAt)
	s.countEvaluation(event.Kind, "stamped")
	if s.metrics != nil {
		s.metrics.ClaimStampsTotal.Inc()
	}

	s.publishChanged(ctx, event, changedAt)
	return nil
}

// publishChanged fans the stamp out to downstream consumers. Best effort: a
// broker failure is logged and never fails the lifecycle event.
func (s *Service) publishChanged(ctx context.Context, event *model.LifecycleEvent, changedAtMillis int64) {
	if s.broker == nil {
		return
	}

	message := &model.PasswordChangedMessage{
		Tenant:          event.TenantDomain,
		Username:        event.Username,
		ChangedAtMillis: changedAtMillis,
	}
	if err := s.broker.Publish(ctx, PasswordChangedChannel, message); err != nil {
		s.logger.Warn(err, "failed to publish password changed message",
			"tenant", event.TenantDomain, "username", event.Username)
	}
}

func (s *Service) countEvaluation(kind model.EventKind, outcome string) {
	if s.metrics != nil {
		s.metrics.EvaluationsTotal.WithLabelValues(kind.String(), outcome).Inc()
	}
}

func (s *Service) countStoreFailure(operation string) {
	if s.metrics != nil {
		s.metrics.StoreFailuresTotal.WithLabelValues(operation).Inc()
	}
}
