package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
)

// ResourcesRepository handles vehicle/driver/trailer persistence.
type ResourcesRepository struct {
	db *sql.DB
}

// NewResourcesRepository creates a new resources repository.
func NewResourcesRepository(db *sql.DB) *ResourcesRepository {
	return &ResourcesRepository{db: db}
}

const resourceColumns = `id, tenant_id, kind, name, user_id, status, created_at, updated_at, deleted_at`

func scanResource(sc interface{ Scan(...any) error }) (*domain.Resource, error) {
	var res domain.Resource
	err := sc.Scan(
		&res.ID, &res.TenantID, &res.Kind, &res.Name, &res.UserID, &res.Status,
		&res.CreatedAt, &res.UpdatedAt, &res.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Create creates a new resource.
func (r *ResourcesRepository) Create(ctx context.Context, res *domain.Resource) error {
	query := `
		INSERT INTO resources (id, tenant_id, kind, name, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.TenantID, res.Kind, res.Name, res.UserID, res.Status,
		res.CreatedAt, res.UpdatedAt,
	)
	return err
}

// GetByID retrieves a resource by ID.
func (r *ResourcesRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	query := `
		SELECT ` + resourceColumns + `
		FROM resources
		WHERE id = $1 AND deleted_at IS NULL
	`
	res, err := scanResource(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrResourceNotFound
	}
	return res, err
}

// ListByTenant retrieves resources of a tenant, optionally filtered by kind.
func (r *ResourcesRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, kind *domain.ResourceKind) ([]*domain.Resource, error) {
	query := `
		SELECT ` + resourceColumns + `
		FROM resources
		WHERE tenant_id = $1 AND deleted_at IS NULL
			AND ($2::text IS NULL OR kind = $2)
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []*domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}

// UpdateStatus updates a resource's availability status.
func (r *ResourcesRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ResourceStatus) error {
	query := `
		UPDATE resources
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrResourceNotFound
	}
	return nil
}

// SoftDelete soft deletes a resource.
func (r *ResourcesRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE resources
		SET deleted_at = NOW()
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
		return domain.ErrResourceNotFound
	}
	return nil
}
