package downstream

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ticketless/admin-console/internal/domain"
)

// AddOrganizationMember attaches an existing account to an organization by
// email. role is "admin" or "user"; empty means "user".
func AddOrganizationMember(ctx context.Context, orgs *Resource[domain.Organization], organizationID int64, email string, role domain.Role) error {
	if organizationID == 0 {
		return domain.ErrMissingParameter("organizationID")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.ErrMissingParameter("email")
	}
	switch role {
	case "":
		role = domain.RoleUser
	case domain.RoleUser, domain.RoleAdmin:
	default:
		return domain.ErrInvalidParameter(fmt.Sprintf("role %q cannot be granted to a member", role))
	}

	url := orgs.url(fmt.Sprintf("organization/%d/members", organizationID))
	_, err := orgs.client.doJSON(ctx, http.MethodPatch, url, domain.Record{"email": email, "role": role})
	return err
}
