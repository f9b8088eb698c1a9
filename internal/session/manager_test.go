package session

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/downstream"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Login(ctx context.Context, email, password string) (downstream.LoginResult, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(downstream.LoginResult), args.Error(1)
}

func (m *mockBackend) ValidateToken(ctx context.Context, token string) (domain.User, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.User), args.Error(1)
}

func int64p(v int64) *int64 { return &v }

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix(), "sub": "1"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func newManager(b Backend) (*Manager, *MemoryStore) {
	store := NewMemoryStore()
	m := NewManager(store, b, domain.NewAllowlist([]string{"root@ticketless.fi"}), 12*time.Hour)
	return m, store
}

func TestLogin_OrgAdmin(t *testing.T) {
	b := new(mockBackend)
	m, store := newManager(b)
	user := domain.User{UserID: 4, Email: "admin@org.fi", UserType: domain.RoleAdmin, OrganizationID: int64p(2)}
	b.On("Login", mock.Anything, "admin@org.fi", "pw").Return(downstream.LoginResult{Token: "opaque", User: user}, nil)

	s, err := m.Login(context.Background(), "admin@org.fi", "pw")
	require.NoError(t, err)
	assert.Equal(t, "opaque", s.Token)
	assert.False(t, s.Principal.Elevated)
	assert.Equal(t, 12*time.Hour, s.TTL)

	cached, err := store.Get(context.Background(), "opaque")
	require.NoError(t, err)
	assert.Equal(t, int64(2), *cached.OrganizationID)
}

func TestLogin_AllowListedIsElevated(t *testing.T) {
	b := new(mockBackend)
	m, _ := newManager(b)
	user := domain.User{UserID: 1, Email: "root@ticketless.fi", UserType: domain.RoleSuperadmin}
	b.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(downstream.LoginResult{Token: "t", User: user}, nil)

	s, err := m.Login(context.Background(), "root@ticketless.fi", "pw")
	require.NoError(t, err)
	assert.True(t, s.Principal.Elevated)
	assert.Equal(t, domain.ViewOverview, domain.Home(s.Principal))
}

func TestLogin_PlainUserRejected(t *testing.T) {
	b := new(mockBackend)
	m, store := newManager(b)
	user := domain.User{UserID: 5, Email: "fan@org.fi", UserType: domain.RoleUser}
	b.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(downstream.LoginResult{Token: "t", User: user}, nil)

	_, err := m.Login(context.Background(), "fan@org.fi", "pw")
	assert.ErrorIs(t, err, ErrWrongCredentials)

	_, err = store.Get(context.Background(), "t")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLogin_BackendRejection(t *testing.T) {
	b := new(mockBackend)
	m, _ := newManager(b)
	b.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(downstream.LoginResult{}, &downstream.StatusError{StatusCode: http.StatusUnauthorized})

	_, err := m.Login(context.Background(), "a@org.fi", "bad")
	assert.ErrorIs(t, err, ErrWrongCredentials)
}

func TestLogin_BackendOutagePassesThrough(t *testing.T) {
	b := new(mockBackend)
	m, _ := newManager(b)
	b.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(downstream.LoginResult{}, downstream.ErrTimeout)

	_, err := m.Login(context.Background(), "a@org.fi", "pw")
	assert.ErrorIs(t, err, downstream.ErrTimeout)
}

func TestLogin_TTLCappedByTokenExpiry(t *testing.T) {
	b := new(mockBackend)
	m, _ := newManager(b)
	token := signed(t, time.Now().Add(30*time.Minute))
	user := domain.User{UserID: 4, Email: "admin@org.fi", UserType: domain.RoleAdmin}
	b.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(downstream.LoginResult{Token: token, User: user}, nil)

	s, err := m.Login(context.Background(), "admin@org.fi", "pw")
	require.NoError(t, err)
	assert.LessOrEqual(t, s.TTL, 30*time.Minute)
	assert.Greater(t, s.TTL, 29*time.Minute)
}

func TestResolve_CacheHitSkipsBackend(t *testing.T) {
	b := new(mockBackend)
	m, store := newManager(b)
	require.NoError(t, store.Set(context.Background(), "tok", &domain.Principal{UserID: 3}, time.Hour))

	p, err := m.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.UserID)
	b.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
}

func TestResolve_RevalidatesOnMiss(t *testing.T) {
	b := new(mockBackend)
	m, store := newManager(b)
	b.On("ValidateToken", mock.Anything, "tok").
		Return(domain.User{UserID: 1, Email: "root@ticketless.fi", UserType: domain.RoleSuperadmin}, nil).Once()

	p, err := m.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, p.Elevated)

	// Second lookup is served from the cache.
	_, err = m.Resolve(context.Background(), "tok")
	require.NoError(t, err)
	b.AssertExpectations(t)

	_, err = store.Get(context.Background(), "tok")
	assert.NoError(t, err)
}

func TestResolve_InvalidToken(t *testing.T) {
	b := new(mockBackend)
	m, _ := newManager(b)
	b.On("ValidateToken", mock.Anything, "stale").
		Return(domain.User{}, &downstream.StatusError{StatusCode: http.StatusUnauthorized})

	_, err := m.Resolve(context.Background(), "stale")
	assert.True(t, domain.IsKind(err, domain.KindUnauthenticated))
}

func TestResolve_ExpiredJWTNeverReachesBackend(t *testing.T) {
	b := new(mockBackend)
	m, _ := newManager(b)

	_, err := m.Resolve(context.Background(), signed(t, time.Now().Add(-time.Minute)))
	assert.True(t, domain.IsKind(err, domain.KindUnauthenticated))
	b.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
}

func TestResolve_BackendOutageIsNotALogout(t *testing.T) {
	b := new(mockBackend)
	m, _ := newManager(b)
	b.On("ValidateToken", mock.Anything, "tok").Return(domain.User{}, downstream.ErrUnavailable)

	_, err := m.Resolve(context.Background(), "tok")
	assert.ErrorIs(t, err, downstream.ErrUnavailable)
	assert.False(t, domain.IsKind(err, domain.KindUnauthenticated))
}

func TestRefreshAndLogout(t *testing.T) {
	b := new(mockBackend)
	m, store := newManager(b)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "tok", &domain.Principal{UserID: 3, Email: "old@org.fi"}, time.Hour))

	p, err := m.Refresh(ctx, "tok", domain.User{UserID: 3, Email: "root@ticketless.fi", UserType: domain.RoleSuperadmin})
	require.NoError(t, err)
	assert.True(t, p.Elevated)

	require.NoError(t, m.Logout(ctx, "tok"))
	_, err = store.Get(ctx, "tok")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, m.Logout(ctx, ""))
}
