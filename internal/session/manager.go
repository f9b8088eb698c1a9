package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/downstream"
	"github.com/ticketless/admin-console/internal/logger"
	"github.com/ticketless/admin-console/internal/tracing"
	"github.com/ticketless/admin-console/middleware"
)

// ErrWrongCredentials is returned for bad passwords and for accounts that may
// not use the console. The two cases are deliberately indistinguishable.
var ErrWrongCredentials = domain.New(domain.KindUnauthenticated, "Wrong email or password")

// Backend is the slice of the Ticketless API the session layer needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (downstream.LoginResult, error)
	ValidateToken(ctx context.Context, token string) (domain.User, error)
}

type resourcesBackend struct {
	res *downstream.Resources
}

// NewBackend adapts the configured resource clients to Backend.
func NewBackend(res *downstream.Resources) Backend {
	return resourcesBackend{res: res}
}

func (b resourcesBackend) Login(ctx context.Context, email, password string) (downstream.LoginResult, error) {
	return downstream.Login(ctx, b.res, email, password)
}

func (b resourcesBackend) ValidateToken(ctx context.Context, token string) (domain.User, error) {
	return downstream.ValidateToken(ctx, b.res, token)
}

// Session is an established console session.
type Session struct {
	Token     string
	Principal *domain.Principal
	TTL       time.Duration
}

// Manager owns the principal for every backend token. The allow-list is
// evaluated here, once per session, and the outcome stored as Elevated.
type Manager struct {
	store   Store
	backend Backend
	allow   domain.Allowlist
	ttl     time.Duration
	now     func() time.Time
}

func NewManager(store Store, backend Backend, allow domain.Allowlist, ttl time.Duration) *Manager {
	return &Manager{
		store:   store,
		backend: backend,
		allow:   allow,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Login signs in against the backend and caches the resulting principal.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	res, err := m.backend.Login(ctx, email, password)
	if err != nil {
		if isCredentialRejection(err) {
			return nil, ErrWrongCredentials
		}
		return nil, err
	}
	if !m.allow.HasConsoleAccess(res.User) {
		return nil, ErrWrongCredentials
	}

	p := m.principalFor(res.User)
	ttl, err := m.ttlFor(res.Token)
	if err != nil {
		return nil, err
	}
	if err := m.store.Set(ctx, res.Token, p, ttl); err != nil {
		return nil, err
	}
	return &Session{Token: res.Token, Principal: p, TTL: ttl}, nil
}

// Resolve implements middleware.SessionResolver. Cache misses are revalidated
// against the backend without bothering the user.
func (m *Manager) Resolve(ctx context.Context, token string) (*domain.Principal, error) {
	p, err := m.store.Get(ctx, token)
	if err == nil {
		middleware.ObserveSessionLookup("hit")
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		logger.Ctx(ctx).Warn().Err(err).Msg("session store lookup failed, revalidating with backend")
	}

	ttl, err := m.ttlFor(token)
	if err != nil {
		middleware.ObserveSessionLookup("rejected")
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "session.revalidate")
	defer span.End()

	user, err := m.backend.ValidateToken(ctx, token)
	if err != nil {
		if downstream.IsUnauthorized(err) || domain.IsKind(err, domain.KindInvalidResponse) {
			middleware.ObserveSessionLookup("rejected")
			return nil, domain.ErrNoPrincipal
		}
		return nil, err
	}
	if !m.allow.HasConsoleAccess(user) {
		middleware.ObserveSessionLookup("rejected")
		return nil, domain.ErrNoPrincipal
	}

	p = m.principalFor(user)
	if err := m.store.Set(ctx, token, p, ttl); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("session store write failed")
	}
	middleware.ObserveSessionLookup("revalidated")
	return p, nil
}

// Refresh replaces the cached principal after the account itself changed.
func (m *Manager) Refresh(ctx context.Context, token string, user domain.User) (*domain.Principal, error) {
	ttl, err := m.ttlFor(token)
	if err != nil {
		return nil, err
	}
	p := m.principalFor(user)
	if err := m.store.Set(ctx, token, p, ttl); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Manager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.store.Delete(ctx, token)
}

// Ping reports whether the session store is reachable.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) principalFor(u domain.User) *domain.Principal {
	p := u.Principal()
	m.allow.Elevate(&p)
	return &p
}

// ttlFor caps the session lifetime at the token's own expiry. The token is
// parsed without verification: the backend remains the authority, the exp
// claim only bounds how long the cache may vouch for it. Opaque tokens get
// the configured TTL.
func (m *Manager) ttlFor(token string) (time.Duration, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return m.ttl, nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return m.ttl, nil
	}
	remaining := exp.Sub(m.now())
	if remaining <= 0 {
		return 0, domain.ErrNoPrincipal
	}
	if remaining < m.ttl {
		return remaining, nil
	}
	return m.ttl, nil
}

func isCredentialRejection(err error) bool {
	var se *downstream.StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
