package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/password-policy/internal/repository"
)

type tenantConfigRepository struct {
	BaseRepository
}

func NewTenantConfigRepository(base BaseRepository) repository.TenantConfigRepository {
	return &tenantConfigRepository{base}
}

func (r *tenantConfigRepository) GetModuleProperties(ctx context.Context, tenant, module string) (map[string]string, error) {
	query := `
		SELECT name, value FROM tenant_module_properties
		WHERE tenant = $1 AND module = $2
	`

	rows, err := r.db.QueryxContext(ctx, query, tenant, module)
	if err != nil {
		return nil, fmt.Errorf("failed to get module properties: %w", err)
	}
	defer rows.Close()

	properties := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan property row: %w", err)
		}
		properties[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read property rows: %w", err)
	}

	return properties, nil
}

func (r *tenantConfigRepository) UpsertProperty(ctx context.Context, tenant, module, name, value string) error {
	query := `
		INSERT INTO tenant_module_properties (tenant, module, name, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant, module, name)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, tenant, module, name, value, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert property %s: %w", name, err)
	}

	return nil
}

func (r *tenantConfigRepository) DeleteProperty(ctx context.Context, tenant, module, name string) error {
	query := `
		DELETE FROM tenant_module_properties
		WHERE tenant = $1 AND module = $2 AND name = $3
	`

	if _, err := r.db.ExecContext(ctx, query, tenant, module, name); err != nil {
		return fmt.Errorf("failed to delete property %s: %w", name, err)
	}

	return nil
}
