package middleware

import (
	"context"

	"github.com/ticketless/admin-console/internal/domain"
)

// SetRequestIDForTest is a helper to inject a request ID into the context for testing.
// It bypasses the HTTP middleware verification.
func SetRequestIDForTest(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID{}, id)
}

// SetPrincipalForTest attaches a principal without a backend token.
func SetPrincipalForTest(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
