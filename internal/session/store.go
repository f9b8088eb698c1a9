package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/ticketless/admin-console/internal/domain"
)

var ErrNotFound = errors.New("session not found")

// Store caches the principal resolved for a backend token.
type Store interface {
	Get(ctx context.Context, token string) (*domain.Principal, error)
	Set(ctx context.Context, token string, p *domain.Principal, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
	Ping(ctx context.Context) error
}

// tokenKey hashes the token so raw credentials never land in the cache.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
