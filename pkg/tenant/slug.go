package tenant

import (
	"regexp"

	"github.com/haulware/dispatch-core/pkg/domain"
)

// Tenant codes become DNS labels, so the format is stricter than a generic
// slug: lowercase alphanumerics and hyphens, no leading/trailing hyphen,
// 3-63 characters.
var codePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,61}[a-z0-9])$`)

// ValidateCode checks that a candidate tenant code is subdomain-safe.
// Callers lowercase first; uppercase input is rejected, not folded.
func ValidateCode(code string) error {
	if !codePattern.MatchString(code) {
		return domain.ErrInvalidTenantCode
	}
	return nil
}
