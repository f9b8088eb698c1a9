package domain

import (
	"strings"
)

// View names one navigable section of the console.
type View string

const (
	ViewOverview       View = "overview"
	ViewEvents         View = "events"
	ViewCalendar       View = "calendar"
	ViewTickets        View = "tickets"
	ViewAccount        View = "account"
	ViewOrganizations  View = "organizations"
	ViewUsers          View = "users"
	ViewAdvertisements View = "advertisements"
	ViewFiles          View = "files"
)

// baseViews are reachable by every signed in principal, in navigation order.
var baseViews = []View{ViewEvents, ViewCalendar, ViewTickets, ViewAccount}

var elevatedViews = []View{ViewOverview, ViewOrganizations, ViewUsers, ViewAdvertisements, ViewFiles}

// Views returns the sections the principal may reach. A nil principal gets none.
func Views(p *Principal) []View {
	if p == nil {
		return nil
	}
	views := make([]View, 0, len(baseViews)+len(elevatedViews))
	if p.Elevated {
		views = append(views, ViewOverview)
	}
	views = append(views, baseViews...)
	if p.Elevated {
		views = append(views, elevatedViews[1:]...)
	}
	return views
}

func Allowed(p *Principal, v View) bool {
	for _, allowed := range Views(p) {
		if allowed == v {
			return true
		}
	}
	return false
}

// Home is the landing section for the root path.
func Home(p *Principal) View {
	if p != nil && p.Elevated {
		return ViewOverview
	}
	return ViewEvents
}

// Scope describes which events and tickets a principal is shown.
type Scope struct {
	// All is set for superadmins, who see every organization's data.
	All            bool
	OrganizationID int64
}

// Empty reports a scope that matches nothing.
func (s Scope) Empty() bool {
	return !s.All && s.OrganizationID == 0
}

func ScopeOf(p *Principal) Scope {
	if p == nil {
		return Scope{}
	}
	switch p.Role {
	case RoleSuperadmin:
		return Scope{All: true}
	case RoleAdmin:
		if p.HasOrganization() {
			return Scope{OrganizationID: *p.OrganizationID}
		}
	}
	return Scope{}
}

// Allowlist is the configured set of superadmin email addresses.
type Allowlist struct {
	emails map[string]struct{}
}

func NewAllowlist(emails []string) Allowlist {
	a := Allowlist{emails: make(map[string]struct{}, len(emails))}
	for _, e := range emails {
		e = normalizeEmail(e)
		if e != "" {
			a.emails[e] = struct{}{}
		}
	}
	return a
}

func (a Allowlist) Contains(email string) bool {
	_, ok := a.emails[normalizeEmail(email)]
	return ok
}

func (a Allowlist) Len() int { return len(a.emails) }

// Elevate resolves the principal's elevated flag against the allow-list.
func (a Allowlist) Elevate(p *Principal) {
	if p != nil {
		p.Elevated = a.Contains(p.Email)
	}
}

// HasConsoleAccess decides whether an account may sign in to the console at all.
func (a Allowlist) HasConsoleAccess(u User) bool {
	return u.UserType == RoleAdmin || a.Contains(u.Email)
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
