package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/ticketless/admin-console/internal/domain"
)

type contextKey string

const (
	principalKey   contextKey = "principal"
	tokenKey       contextKey = "backend_token"
	actorHolderKey contextKey = "actor_holder"
)

type actorHolder struct {
	userID int64
}

func withActorHolder(ctx context.Context, h *actorHolder) context.Context {
	return context.WithValue(ctx, actorHolderKey, h)
}

// SessionResolver turns a backend token into the principal it belongs to.
// It returns an error of kind domain.KindUnauthenticated for tokens the
// backend no longer accepts.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Principal, error)
}

// TokenFromRequest reads the backend token from the session cookie or,
// failing that, from an Authorization: Bearer header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Session attaches the principal for the request's token, when there is one.
// Requests without a usable token continue anonymously; RequireSession
// rejects them further down the chain.
func Session(resolver SessionResolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			p, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				if domain.IsKind(err, domain.KindUnauthenticated) {
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, r, http.StatusServiceUnavailable, "session_unavailable", "could not verify session")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), token, p)))
		})
	}
}

// RequireSession answers 401 when no principal was resolved.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPrincipal(r.Context()) == nil {
			writeError(w, r, http.StatusUnauthorized, "unauthenticated", "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireView hides a section from principals that may not reach it.
// The response is a plain 404 so gated sections are indistinguishable from
// routes that do not exist.
func RequireView(v domain.View) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !domain.Allowed(GetPrincipal(r.Context()), v) {
				http.NotFound(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithSession(ctx context.Context, token string, p *domain.Principal) context.Context {
	if h, ok := ctx.Value(actorHolderKey).(*actorHolder); ok && p != nil {
		h.userID = p.UserID
	}
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, tokenKey, token)
}

func GetPrincipal(ctx context.Context) *domain.Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(principalKey).(*domain.Principal)
	return p
}

// GetToken returns the raw backend token of the current session.
func GetToken(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	var body domain.APIError
	body.Error.Code = code
	body.Error.Message = msg
	body.Error.RequestID = GetRequestID(r.Context())
	render.Status(r, status)
	render.JSON(w, r, body)
}
