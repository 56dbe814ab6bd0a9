package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/password-policy/internal/model"
	"github.com/jwalitptl/password-policy/internal/repository"
)

const defaultProfile = "default"

type claimRepository struct {
	BaseRepository
}

func NewClaimRepository(base BaseRepository) repository.ClaimRepository {
	return &claimRepository{base}
}

func (r *claimRepository) GetClaimValues(ctx context.Context, tenant, username string, claimURIs []string, profile string) (map[string]string, error) {
	query := `
		SELECT claim_uri, claim_value FROM user_claims
		WHERE tenant = $1 AND username = $2 AND profile = $3 AND claim_uri = ANY($4)
	`

	rows, err := r.db.QueryxContext(ctx, query, tenant, username, profileOrDefault(profile), pq.Array(claimURIs))
	if err != nil {
		return nil, fmt.Errorf("failed to get claim values: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var uri, value string
		if err := rows.Scan(&uri, &value); err != nil {
			return nil, fmt.Errorf("failed to scan claim row: %w", err)
		}
		values[uri] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read claim rows: %w", err)
	}

	return values, nil
}

func (r *claimRepository) SetClaimValues(ctx context.Context, tenant, username string, claims map[string]string, profile string) error {
	query := `
		INSERT INTO user_claims (tenant, username, profile, claim_uri, claim_value, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant, username, profile, claim_uri)
		DO UPDATE SET claim_value = EXCLUDED.claim_value, updated_at = EXCLUDED.updated_at
	`

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()
		for uri, value := range claims {
			if _, err := tx.ExecContext(ctx, query, tenant, username, profileOrDefault(profile), uri, value, now); err != nil {
				return fmt.Errorf("failed to set claim %s: %w", uri, err)
			}
		}
		return nil
	})
}

func (r *claimRepository) ListStaleClaims(ctx context.Context, tenant, claimURI string, olderThan time.Time, limit int) ([]*model.ClaimRecord, error) {
	// Timestamp claims are written by this service as epoch-millis strings;
	// the numeric guard keeps a hand-edited row from failing the cast.
	query := `
		SELECT username, claim_value FROM user_claims
		WHERE tenant = $1 AND claim_uri = $2 AND profile = $3
		  AND claim_value ~ '^[0-9]+$'
		  AND claim_value::bigint < $4
		ORDER BY claim_value::bigint ASC
		LIMIT $5
	`

	rows, err := r.db.QueryxContext(ctx, query, tenant, claimURI, defaultProfile, olderThan.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale claims: %w", err)
	}
	defer rows.Close()

	var records []*model.ClaimRecord
	for rows.Next() {
		var username, value string
		if err := rows.Scan(&username, &value); err != nil {
			return nil, fmt.Errorf("failed to scan stale claim row: %w", err)
		}
		millis, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse claim value for %s: %w", username, err)
		}
		records = append(records, &model.ClaimRecord{
			Username:  username,
			ChangedAt: time.UnixMilli(millis),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stale claim rows: %w", err)
	}

	return records, nil
}

func (r *claimRepository) ListTenants(ctx context.Context, claimURI string) ([]string, error) {
	query := `
		SELECT DISTINCT tenant FROM user_claims
		WHERE claim_uri = $1
		ORDER BY tenant
	`

	var tenants []string
	if err := r.db.SelectContext(ctx, &tenants, query, claimURI); err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	return tenants, nil
}

func profileOrDefault(profile string) string {
	if profile == "" {
		return defaultProfile
	}
	return profile
}
