package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/haulware/dispatch-core/pkg/domain"
)

type fakeMembershipStore struct {
	memberships map[uuid.UUID]map[uuid.UUID]*domain.Membership
}

func (s *fakeMembershipStore) GetByUserAndTenant(_ context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
	if m, ok := s.memberships[tenantID][userID]; ok {
		return m, nil
	}
	return nil, domain.ErrMembershipNotFound
}

func TestAuthorize(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	admin := uuid.New()
	driver := uuid.New()
	suspended := uuid.New()
	outsider := uuid.New()

	store := &fakeMembershipStore{memberships: map[uuid.UUID]map[uuid.UUID]*domain.Membership{
		tenantA: {
			admin: {
				ID: uuid.New(), TenantID: tenantA, UserID: admin,
				Role: domain.RoleAdmin, Status: domain.MembershipStatusActive,
			},
			driver: {
				ID: uuid.New(), TenantID: tenantA, UserID: driver,
				Role: domain.RoleDriver, Status: domain.MembershipStatusActive,
			},
			suspended: {
				ID: uuid.New(), TenantID: tenantA, UserID: suspended,
				Role: domain.RoleAdmin, Status: domain.MembershipStatusSuspended,
			},
		},
	}}

	authorizer := NewAuthorizer(store)

	tests := []struct {
		name     string
		userID   uuid.UUID
		tenantID uuid.UUID
		required domain.Role
		wantErr  error
	}{
		{
			name:     "admin passes admin check",
			userID:   admin,
			tenantID: tenantA,
			required: domain.RoleAdmin,
		},
		{
			name:     "admin passes viewer check",
			userID:   admin,
			tenantID: tenantA,
			required: domain.RoleViewer,
		},
		{
			name:     "driver passes driver check",
			userID:   driver,
			tenantID: tenantA,
			required: domain.RoleDriver,
		},
		{
			name:     "driver below dispatcher",
			userID:   driver,
			tenantID: tenantA,
			required: domain.RoleDispatcher,
			wantErr:  domain.ErrInsufficientRole,
		},
		{
			name:     "non-member rejected even with valid credential",
			userID:   outsider,
			tenantID: tenantA,
			required: domain.RoleViewer,
			wantErr:  domain.ErrNotAMember,
		},
		{
			name:     "member of one tenant is nobody in another",
			userID:   admin,
			tenantID: tenantB,
			required: domain.RoleViewer,
			wantErr:  domain.ErrNotAMember,
		},
		{
			name:     "suspended membership is not a member",
			userID:   suspended,
			tenantID: tenantA,
			required: domain.RoleViewer,
			wantErr:  domain.ErrNotAMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			membership, err := authorizer.Authorize(context.Background(), tt.userID, tt.tenantID, tt.required)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authorize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authorize() unexpected error: %v", err)
			}
			if membership == nil || membership.UserID != tt.userID {
				t.Errorf("Authorize() membership = %+v, want membership of %s", membership, tt.userID)
			}
		})
	}
}

func TestRoleAtLeast(t *testing.T) {
	order := []domain.Role{domain.RoleViewer, domain.RoleDriver, domain.RoleDispatcher, domain.RoleAdmin}
	for i, lower := range order {
		for j, higher := range order {
			got := higher.AtLeast(lower)
			want := j >= i
			if got != want {
				t.Errorf("%s.AtLeast(%s) = %v, want %v", higher, lower, got, want)
			}
		}
	}
}
