package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated customer organization. Code is the
// subdomain-safe slug used to reach the tenant; it is globally unique and
// immutable once assigned.
type Tenant struct {
	ID          uuid.UUID
	Code        string
	Name        string
	CompanyType string
	Active      bool
	LogoURL     *string
	BrandColor  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}
