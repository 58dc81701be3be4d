package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
)

// TenantsRepository handles tenant data persistence.
type TenantsRepository struct {
	db *sql.DB
}

// NewTenantsRepository creates a new tenants repository.
func NewTenantsRepository(db *sql.DB) *TenantsRepository {
	return &TenantsRepository{db: db}
}

const tenantColumns = `id, code, name, company_type, active, logo_url, brand_color, created_at, updated_at, deleted_at`

func scanTenant(row *sql.Row) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := row.Scan(
		&tenant.ID,
		&tenant.Code,
		&tenant.Name,
		&tenant.CompanyType,
		&tenant.Active,
		&tenant.LogoURL,
		&tenant.BrandColor,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
		&tenant.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Create creates a new tenant.
func (r *TenantsRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	return r.CreateTx(ctx, r.db, tenant)
}

// CreateTx creates a new tenant within a transaction.
func (r *TenantsRepository) CreateTx(ctx context.Context, q Querier, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, code, name, company_type, active, logo_url, brand_color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := q.ExecContext(ctx, query,
		tenant.ID,
		tenant.Code,
		tenant.Name,
		tenant.CompanyType,
		tenant.Active,
		tenant.LogoURL,
		tenant.BrandColor,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	return err
}

// GetByID retrieves a tenant by ID.
func (r *TenantsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE id = $1 AND deleted_at IS NULL
	`
	return scanTenant(r.db.QueryRowContext(ctx, query, id))
}

// GetByCode retrieves a tenant by its subdomain code. Lookup is exact; the
// caller normalizes casing before calling.
func (r *TenantsRepository) GetByCode(ctx context.Context, code string) (*domain.Tenant, error) {
	query := `
		SELECT ` + tenantColumns + `
		FROM tenants
		WHERE code = $1 AND deleted_at IS NULL
	`
	return scanTenant(r.db.QueryRowContext(ctx, query, code))
}

// CodeExists reports whether a tenant code is already taken, including by
// deactivated tenants (codes are never recycled).
func (r *TenantsRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM tenants WHERE code = $1)`, code,
	).Scan(&exists)
	return exists, err
}

// Update updates a tenant's mutable fields. Code is immutable and is not
// part of the update.
func (r *TenantsRepository) Update(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, company_type = $2, active = $3, logo_url = $4, brand_color = $5, updated_at = NOW()
		WHERE id = $6 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		tenant.Name,
		tenant.CompanyType,
		tenant.Active,
		tenant.LogoURL,
		tenant.BrandColor,
		tenant.ID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}

	return nil
}

// Deactivate marks a tenant inactive. Tenants are never hard-deleted.
func (r *TenantsRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE tenants
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrTenantNotFound
	}

	return nil
}
