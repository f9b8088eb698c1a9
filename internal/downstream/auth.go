package downstream

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ticketless/admin-console/internal/domain"
)

// DefaultLoginTimeout bounds login and password checks, which the backend
// answers slowly on purpose.
const DefaultLoginTimeout = 60 * time.Second

type ctxKeyToken struct{}

// WithToken makes calls on ctx authenticate as token instead of the session's.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKeyToken{}, token)
}

type LoginResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (r *Resources) loginTimeout() time.Duration {
	if r.LoginTimeout > 0 {
		return r.LoginTimeout
	}
	return DefaultLoginTimeout
}

func Login(ctx context.Context, res *Resources, email, password string) (LoginResult, error) {
	var out LoginResult
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return out, domain.New(domain.KindMissingParameter, "Missing parameters, check posted data.")
	}

	ctx = WithCallTimeout(ctx, res.loginTimeout())
	env, err := res.Client.doJSON(ctx, http.MethodPost, res.url("admin/user/login"),
		domain.Record{"email": email, "password": password})
	if err != nil {
		return out, err
	}

	token, err := unwrapOne[string](env, "token")
	if err != nil || token == "" {
		return out, domain.New(domain.KindInvalidResponse, "Invalid response from the server.")
	}
	out.Token = token
	if out.User, err = unwrapOne[domain.User](env, "user"); err != nil {
		return out, err
	}
	return out, nil
}

// ValidateToken asks the backend who a token belongs to.
func ValidateToken(ctx context.Context, res *Resources, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, domain.ErrMissingParameter("token")
	}
	ctx = WithToken(ctx, token)
	env, err := res.Client.doJSON(ctx, http.MethodPost, res.url("admin/user/auth"), domain.Record{"token": token})
	if err != nil {
		return domain.User{}, err
	}
	return unwrapOne[domain.User](env, "user")
}

// CheckPassword reports whether password is the current password of userID.
func CheckPassword(ctx context.Context, res *Resources, userID int64, password string) (bool, error) {
	if userID == 0 || password == "" {
		return false, domain.New(domain.KindMissingParameter, "Missing parameters, check posted data.")
	}
	ctx = WithCallTimeout(ctx, res.loginTimeout())
	env, err := res.Client.doJSON(ctx, http.MethodPost, res.url("users/check-password"),
		domain.Record{"userID": userID, "password": password})
	if err != nil {
		return false, err
	}
	valid, err := unwrapOne[bool](env, "isValid")
	if err != nil {
		return false, err
	}
	return valid, nil
}

func ChangePassword(ctx context.Context, res *Resources, userID int64, newPassword string) error {
	if userID == 0 || newPassword == "" {
		return domain.New(domain.KindMissingParameter, "Missing parameters, check posted data.")
	}
	_, err := res.Client.doJSON(ctx, http.MethodPatch, res.url("users"),
		domain.Record{"userID": userID, "password": newPassword})
	return err
}

func (r *Resources) url(path string) string {
	return strings.TrimRight(r.APIRoot, "/") + "/" + strings.TrimLeft(path, "/")
}
