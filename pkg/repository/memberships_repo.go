package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
)

// MembershipsRepository handles membership data persistence.
type MembershipsRepository struct {
	db *sql.DB
}

// NewMembershipsRepository creates a new memberships repository.
func NewMembershipsRepository(db *sql.DB) *MembershipsRepository {
	return &MembershipsRepository{db: db}
}

const membershipColumns = `id, tenant_id, user_id, role, status, created_at, updated_at, deleted_at`

func scanMembership(sc interface{ Scan(...any) error }) (*domain.Membership, error) {
	var m domain.Membership
	err := sc.Scan(
		&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.Status,
		&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create creates a new membership.
func (r *MembershipsRepository) Create(ctx context.Context, membership *domain.Membership) error {
	return r.CreateTx(ctx, r.db, membership)
}

// CreateTx creates a new membership within a transaction.
func (r *MembershipsRepository) CreateTx(ctx context.Context, q Querier, membership *domain.Membership) error {
	query := `
		INSERT INTO memberships (id, tenant_id, user_id, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		membership.ID,
		membership.TenantID,
		membership.UserID,
		membership.Role,
		membership.Status,
		membership.CreatedAt,
		membership.UpdatedAt,
	)
	return err
}

// GetByID retrieves a membership by ID.
func (r *MembershipsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE id = $1 AND deleted_at IS NULL
	`
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMembershipNotFound
	}
	return m, err
}

// GetByUserAndTenant retrieves the membership for a user in a tenant. At
// most one exists per (user, tenant) pair.
func (r *MembershipsRepository) GetByUserAndTenant(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE user_id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`
	m, err := scanMembership(r.db.QueryRowContext(ctx, query, userID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMembershipNotFound
	}
	return m, err
}

// GetByTenantID retrieves all members of a tenant.
func (r *MembershipsRepository) GetByTenantID(ctx context.Context, tenantID uuid.UUID) ([]*domain.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*domain.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}

	return memberships, rows.Err()
}

// UpdateRole updates the role of a membership.
func (r *MembershipsRepository) UpdateRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	query := `
		UPDATE memberships
		SET role = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, role, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMembershipNotFound
	}

	return nil
}

// SoftDelete revokes a membership.
func (r *MembershipsRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE memberships
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
		return domain.ErrMembershipNotFound
	}

	return nil
}
