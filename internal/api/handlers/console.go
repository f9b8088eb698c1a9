package handlers

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/render"

	"github.com/ticketless/admin-console/internal/config"
	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/downstream"
	"github.com/ticketless/admin-console/internal/form"
	"github.com/ticketless/admin-console/middleware"
)

// overviewOrder is the display order of the overview counters.
var overviewOrder = []string{
	"Organizations",
	"Users",
	"Events",
	"Tickets",
	"Chats",
	"Messages",
	"Subscriptions",
	"Advertisements",
}

// ConsoleHandler serves the views that are not plain lists or forms:
// overview, calendar, event links, the account page and organization members.
type ConsoleHandler struct {
	res       *downstream.Resources
	endpoints config.Endpoints
	sessions  SessionManager
	audit     AuditLog
}

func NewConsoleHandler(res *downstream.Resources, endpoints config.Endpoints, sessions SessionManager, audit AuditLog) *ConsoleHandler {
	return &ConsoleHandler{res: res, endpoints: endpoints, sessions: sessions, audit: audit}
}

func (h *ConsoleHandler) Overview(w http.ResponseWriter, r *http.Request) {
	meta, err := downstream.SuperAdminMeta(r.Context(), h.res.Overview)
	if err != nil {
		handleError(w, r, err, "failed to fetch overview")
		return
	}

	cards := make([]domain.OverviewCard, 0, len(overviewOrder))
	for _, name := range overviewOrder {
		cards = append(cards, domain.OverviewCard{
			CollectionName:  name,
			CollectionCount: meta[strings.ToLower(name)].Count,
		})
	}
	render.JSON(w, r, map[string]any{"items": cards})
}

// CalendarURL is the embeddable calendar address, scoped to the
// principal's organization when it has one.
func CalendarURL(base string, p *domain.Principal) string {
	if !p.HasOrganization() {
		return base
	}
	return fmt.Sprintf("%s/?organizationID=%d", base, *p.OrganizationID)
}

func (h *ConsoleHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]string{"url": CalendarURL(h.endpoints.EventCalendarURL, p)})
}

func (h *ConsoleHandler) EventLink(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	link := fmt.Sprintf("%s/events/%d", h.endpoints.AppBaseURL, id)
	render.JSON(w, r, map[string]string{"url": link})
}

// Account returns the signed-in user's own profile, fresh from the backend.
func (h *ConsoleHandler) Account(w http.ResponseWriter, r *http.Request) {
	user, err := downstream.ValidateToken(r.Context(), h.res, middleware.GetToken(r.Context()))
	if err != nil {
		handleError(w, r, err, "failed to fetch account")
		return
	}
	render.JSON(w, r, map[string]any{"user": user})
}

// UpdateAccount sends only the changed profile fields.
func (h *ConsoleHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var submitted domain.Record
	if !decodeJSON(w, r, &submitted) {
		return
	}
	changes := domain.Record{}
	for k, v := range submitted {
		if slices.Contains(form.AccountFields, k) {
			changes[k] = v
		}
	}
	if err := form.CheckAccount(changes); err != nil {
		handleError(w, r, err, "invalid account data")
		return
	}

	token := middleware.GetToken(r.Context())
	current, err := downstream.ValidateToken(r.Context(), h.res, token)
	if err != nil {
		handleError(w, r, err, "failed to fetch account")
		return
	}
	original, err := recordOf(current)
	if err != nil {
		handleError(w, r, err, "failed to fetch account")
		return
	}
	dirty := form.Diff(original, changes, "userID")
	delete(dirty, "userID")
	if len(dirty) == 0 {
		render.JSON(w, r, map[string]any{"user": current, "dirty": []string{}})
		return
	}

	updated, err := downstream.UpdateUser(r.Context(), h.res.Users, p.UserID, dirty)
	if err != nil {
		handleError(w, r, err, "failed to save account")
		return
	}
	if updated == nil {
		// The backend does not always echo the user; apply the changes locally.
		merged, err := applyRecord(current, dirty)
		if err != nil {
			handleError(w, r, err, "failed to save account")
			return
		}
		updated = &merged
	}
	if _, err := h.sessions.Refresh(r.Context(), token, *updated); err != nil {
		handleError(w, r, err, "failed to refresh session")
		return
	}
	render.JSON(w, r, map[string]any{"user": updated, "dirty": form.DirtyFields(original, changes, "userID")})
}

func (h *ConsoleHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req form.PasswordChange
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := form.Check(req); err != nil {
		handleError(w, r, err, "invalid password change")
		return
	}

	valid, err := downstream.CheckPassword(r.Context(), h.res, p.UserID, req.OldPassword)
	if err != nil {
		handleError(w, r, err, "failed to check password")
		return
	}
	if !valid {
		handleError(w, r, domain.ErrValidation(map[string]string{"oldPassword": "wrong_password"}), "wrong password")
		return
	}
	if err := downstream.ChangePassword(r.Context(), h.res, p.UserID, req.NewPassword); err != nil {
		handleError(w, r, err, "failed to change password")
		return
	}
	h.audit.PasswordChanged(r.Context(), p.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConsoleHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	orgID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req form.MemberInvite
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := form.Check(req); err != nil {
		handleError(w, r, err, "invalid member")
		return
	}

	if err := downstream.AddOrganizationMember(r.Context(), h.res.Organizations, orgID, req.Email, domain.Role(req.Role)); err != nil {
		handleError(w, r, err, "failed to add member")
		return
	}
	role := req.Role
	if role == "" {
		role = string(domain.RoleUser)
	}
	h.audit.MemberAdded(r.Context(), orgID, p.UserID, req.Email, role)
	render.JSON(w, r, map[string]bool{"refresh": true})
}

func recordOf(u domain.User) (domain.Record, error) {
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	var rec domain.Record
	return rec, json.Unmarshal(raw, &rec)
}

func applyRecord(u domain.User, changes domain.Record) (domain.User, error) {
	rec, err := recordOf(u)
	if err != nil {
		return u, err
	}
	maps.Copy(rec, changes)
	raw, err := json.Marshal(rec)
	if err != nil {
		return u, err
	}
	var out domain.User
	return out, json.Unmarshal(raw, &out)
}
