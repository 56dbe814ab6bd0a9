package policyconfig

import (
	"context"
	"strconv"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
	"github.com/jwalitptl/password-policy/pkg/logger"
)

// Resolver resolves the password policy connector properties for a tenant,
// substituting the documented defaults when no override exists. Lookup
// failures never escape: they are logged and treated as "no override".
type Resolver struct {
	repo   repository.TenantConfigRepository
	logger *logger.Logger
}

func NewResolver(repo repository.TenantConfigRepository, logger *logger.Logger) *Resolver {
	return &Resolver{
		repo:   repo,
		logger: logger,
	}
}

// Resolve returns the effective string value of one recognized setting for
// the tenant. It never fails for a recognized name. Requesting a name
// outside the recognized set is a caller bug; it yields "" with a warning.
func (r *Resolver) Resolve(ctx context.Context, tenant, name string) string {
	defaultValue, recognized := model.DefaultValue(name)
	if !recognized {
		r.logger.Warn(nil, "unrecognized policy setting requested", "setting", name)
		return ""
	}

	properties, err := r.repo.GetModuleProperties(ctx, tenant, model.HandlerName)
	if err != nil {
		r.logger.Warn(err, "failed to retrieve module properties, using default",
			"tenant", tenant, "setting", name)
		return defaultValue
	}

	value, ok := properties[name]
	if !ok || value == "" {
		return defaultValue
	}
	return value
}

// ResolveAll returns a typed snapshot of all four settings for the tenant.
// Malformed overrides fall back to the documented defaults.
func (r *Resolver) ResolveAll(ctx context.Context, tenant string) *model.PolicySettings {
	return &model.PolicySettings{
		MinLifetimeInDays:   r.resolveInt(ctx, tenant, model.SettingMinLifetimeInDays, model.DefaultMinLifetimeInDays),
		ExpiryInDays:        r.resolveInt(ctx, tenant, model.SettingExpiryInDays, model.DefaultExpiryInDays),
		EnableNotifications: r.resolveBool(ctx, tenant, model.SettingEnableNotifications, model.DefaultEnableNotifications),
		ReminderLeadDays:    r.resolveInt(ctx, tenant, model.SettingReminderLeadDays, model.DefaultReminderLeadDays),
	}
}

// ResolveMinLifetimeDays is the evaluator's hot-path lookup.
func (r *Resolver) ResolveMinLifetimeDays(ctx context.Context, tenant string) int {
	return r.resolveInt(ctx, tenant, model.SettingMinLifetimeInDays, model.DefaultMinLifetimeInDays)
}

func (r *Resolver) resolveInt(ctx context.Context, tenant, name string, fallback int) int {
	value := r.Resolve(ctx, tenant, name)
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		r.logger.Warn(err, "malformed policy setting override, using default",
			"tenant", tenant, "setting", name, "value", value)
		return fallback
	}
	return parsed
}

func (r *Resolver) resolveBool(ctx context.Context, tenant, name string, fallback bool) bool {
	value := r.Resolve(ctx, tenant, name)
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.logger.Warn(err, "malformed policy setting override, using default",
			"tenant", tenant, "setting", name, "value", value)
		return fallback
	}
	return parsed
}
