package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/session"
	"github.com/ticketless/admin-console/middleware"
)

// SessionManager establishes and ends console sessions.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*session.Session, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string, user domain.User) (*domain.Principal, error)
}

// AuditLog receives the session-level audit events.
type AuditLog interface {
	LoginSuccess(ctx context.Context, userID int64, email, ip string)
	LoginFailed(ctx context.Context, email, ip, reason string)
	Logout(ctx context.Context, userID int64)
	PasswordChanged(ctx context.Context, userID int64)
	MemberAdded(ctx context.Context, organizationID, actorID int64, email, role string)
}

// DraftDropper forgets the open forms of a session.
type DraftDropper interface {
	DropOwner(owner string)
}

// CookieConfig describes the session cookie handed to the browser.
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	sessions SessionManager
	audit    AuditLog
	drafts   DraftDropper
	cookie   CookieConfig
}

func NewAuthHandler(sessions SessionManager, audit AuditLog, drafts DraftDropper, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{sessions: sessions, audit: audit, drafts: drafts, cookie: cookie}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the signed-in principal and what it may see.
type SessionResponse struct {
	Principal *domain.Principal `json:"principal"`
	Views     []domain.View     `json:"views"`
	Home      domain.View       `json:"home"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

func sessionResponse(p *domain.Principal) SessionResponse {
	return SessionResponse{Principal: p, Views: domain.Views(p), Home: domain.Home(p)}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	s, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if domain.IsKind(err, domain.KindUnauthenticated) || domain.IsKind(err, domain.KindMissingParameter) {
			h.audit.LoginFailed(r.Context(), req.Email, r.RemoteAddr, string(domain.KindOf(err)))
		}
		handleError(w, r, err, "login failed")
		return
	}

	expires := time.Now().Add(s.TTL)
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    s.Token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.TTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	h.audit.LoginSuccess(r.Context(), s.Principal.UserID, s.Principal.Email, r.RemoteAddr)

	resp := sessionResponse(s.Principal)
	resp.ExpiresAt = &expires
	render.JSON(w, r, resp)
}

// Logout ends the session. It succeeds for anonymous callers too so the
// browser can always clear its cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r, h.cookie.Name)
	if token != "" {
		if err := h.sessions.Logout(r.Context(), token); err != nil {
			handleError(w, r, err, "logout failed")
			return
		}
		h.drafts.DropOwner(token)
	}
	if p := middleware.GetPrincipal(r.Context()); p != nil {
		h.audit.Logout(r.Context(), p.UserID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the current principal with its visible views.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, sessionResponse(p))
}

type viewsResponse struct {
	Views []domain.View `json:"views"`
	Home  domain.View   `json:"home"`
}

// Views lists the sections the principal may reach.
func Views(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, viewsResponse{Views: domain.Views(p), Home: domain.Home(p)})
}

// Root sends the principal to its landing view.
func Root(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, "/api/"+string(domain.Home(p)), http.StatusTemporaryRedirect)
}
