package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ticketless/admin-console/internal/domain"
)

// RedisStore keeps sessions in Redis so every console replica sees the same
// logins. Keys: admin:session:<sha256(token)> -> principal JSON, with TTL.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
}

func NewRedisStore(rdb *goredis.Client) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "admin:session:"}
}

func (s *RedisStore) Get(ctx context.Context, token string) (*domain.Principal, error) {
	if s.rdb == nil {
		return nil, errors.New("redis session store not configured")
	}
	raw, err := s.rdb.Get(ctx, s.prefix+tokenKey(token)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var p domain.Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		// Unreadable entries are treated as absent and revalidated.
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *RedisStore) Set(ctx context.Context, token string, p *domain.Principal, ttl time.Duration) error {
	if s.rdb == nil {
		return errors.New("redis session store not configured")
	}
	if p == nil {
		return fmt.Errorf("set session: nil principal")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.prefix+tokenKey(token), raw, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if s.rdb == nil {
		return errors.New("redis session store not configured")
	}
	return s.rdb.Del(ctx, s.prefix+tokenKey(token)).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if s.rdb == nil {
		return errors.New("redis session store not configured")
	}
	return s.rdb.Ping(ctx).Err()
}
