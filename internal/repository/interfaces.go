package repository

import (
	"context"
	"time"

	"github.com/jwalitptl/password-policy/internal/model"
)

// All repository interfaces in one file
type (
	// ClaimRepository persists per-account string claims, scoped by tenant.
	ClaimRepository interface {
		GetClaimValues(ctx context.Context, tenant, username string, claimURIs []string, profile string) (map[string]string, error)
		SetClaimValues(ctx context.Context, tenant, username string, claims map[string]string, profile string) error

		// ListStaleClaims returns accounts whose stored value for claimURI
		// is older than the cutoff, for the expiry scanner.
		ListStaleClaims(ctx context.Context, tenant, claimURI string, olderThan time.Time, limit int) ([]*model.ClaimRecord, error)

		// ListTenants returns every tenant that has at least one stored
		// value for claimURI.
		ListTenants(ctx context.Context, claimURI string) ([]string, error)
	}

	// TenantConfigRepository resolves per-tenant module properties.
	TenantConfigRepository interface {
		GetModuleProperties(ctx context.Context, tenant, module string) (map[string]string, error)
		UpsertProperty(ctx context.Context, tenant, module, name, value string) error
		DeleteProperty(ctx context.Context, tenant, module, name string) error
	}
)

// TenantClaimStore binds a ClaimRepository to one tenant, yielding the
// per-account store handle a lifecycle event carries.
type TenantClaimStore struct {
	repo   ClaimRepository
	tenant string
}

func NewTenantClaimStore(repo ClaimRepository, tenant string) *TenantClaimStore {
	return &TenantClaimStore{repo: repo, tenant: tenant}
}

func (s *TenantClaimStore) GetClaimValues(ctx context.Context, username string, claimURIs []string, profile string) (map[string]string, error) {
	return s.repo.GetClaimValues(ctx, s.tenant, username, claimURIs, profile)
}

func (s *TenantClaimStore) SetClaimValues(ctx context.Context, username string, claims map[string]string, profile string) error {
	return s.repo.SetClaimValues(ctx, s.tenant, username, claims, profile)
}
