package tenant

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/auth"
	"github.com/haulware/dispatch-core/pkg/domain"
	"github.com/haulware/dispatch-core/pkg/repository"
)

// RegistrationService creates tenants. Registration writes the tenant, the
// admin identity, and the first admin membership in one transaction so a
// tenant can never exist without an admin.
type RegistrationService struct {
	db          *sql.DB
	tenants     *repository.TenantsRepository
	users       *repository.UsersRepository
	memberships *repository.MembershipsRepository
	resolver    *Resolver
	policy      *auth.PasswordPolicy
}

// NewRegistrationService creates a new registration service.
func NewRegistrationService(
	db *sql.DB,
	tenants *repository.TenantsRepository,
	users *repository.UsersRepository,
	memberships *repository.MembershipsRepository,
	resolver *Resolver,
	policy *auth.PasswordPolicy,
) *RegistrationService {
	if policy == nil {
		policy = auth.DefaultPasswordPolicy()
	}
	return &RegistrationService{
		db:          db,
		tenants:     tenants,
		users:       users,
		memberships: memberships,
		resolver:    resolver,
		policy:      policy,
	}
}

// CheckCode reports whether a tenant code can be registered.
func (s *RegistrationService) CheckCode(ctx context.Context, code string) (bool, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if err := ValidateCode(code); err != nil {
		return false, err
	}
	if s.resolver.IsReserved(code) {
		return false, nil
	}
	taken, err := s.tenants.CodeExists(ctx, code)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// RegisterInput holds tenant registration fields.
type RegisterInput struct {
	Code          string
	CompanyName   string
	CompanyType   string
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// RegisterResult is the outcome of a successful registration.
type RegisterResult struct {
	Tenant     *domain.Tenant
	Admin      *domain.User
	Membership *domain.Membership
}

// Register creates a tenant with its first admin membership. If the admin
// email already belongs to an identity, that identity is attached instead
// of created; its password is left untouched.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	code := strings.ToLower(strings.TrimSpace(in.Code))
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	if s.resolver.IsReserved(code) {
		return nil, domain.ErrInvalidTenantCode
	}

	taken, err := s.tenants.CodeExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrTenantCodeTaken
	}

	email, err := auth.NormalizeEmail(in.AdminEmail)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	admin, err := s.users.GetByEmail(ctx, email)
	newUser := false
	if errors.Is(err, domain.ErrUserNotFound) {
		if err := s.policy.ValidatePassword(in.AdminPassword); err != nil {
			return nil, err
		}
		name := strings.TrimSpace(in.AdminName)
		admin = &domain.User{
			ID:        uuid.New(),
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if name != "" {
			admin.Name = &name
		}
		newUser = true
	} else if err != nil {
		return nil, err
	}

	tenant := &domain.Tenant{
		ID:          uuid.New(),
		Code:        code,
		Name:        strings.TrimSpace(in.CompanyName),
		CompanyType: strings.TrimSpace(in.CompanyType),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if tenant.Name == "" {
		tenant.Name = code
	}

	membership := &domain.Membership{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		UserID:    admin.ID,
		Role:      domain.RoleAdmin,
		Status:    domain.MembershipStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.tenants.CreateTx(ctx, tx, tenant); err != nil {
			return err
		}
		if newUser {
			if err := s.users.CreateTx(ctx, tx, admin); err != nil {
				return err
			}
			hash, err := auth.HashPassword(in.AdminPassword)
			if err != nil {
				return err
			}
			if err := s.users.SetPasswordTx(ctx, tx, admin.ID, hash); err != nil {
				return err
			}
		}
		return s.memberships.CreateTx(ctx, tx, membership)
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResult{Tenant: tenant, Admin: admin, Membership: membership}, nil
}
