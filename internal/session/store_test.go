package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketless/admin-console/internal/domain"
)

func TestRedisStore_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb)
	ctx := context.Background()

	_, err = store.Get(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)

	org := int64(8)
	require.NoError(t, store.Set(ctx, "tok", &domain.Principal{UserID: 1, Email: "a@org.fi", OrganizationID: &org, Elevated: true}, time.Minute))

	p, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "a@org.fi", p.Email)
	assert.True(t, p.Elevated)
	assert.Equal(t, int64(8), *p.OrganizationID)

	// The raw token is never used as a key.
	assert.False(t, mr.Exists("admin:session:tok"))
	assert.True(t, mr.Exists("admin:session:"+tokenKey("tok")))

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Ping(ctx))
}

func TestRedisStore_Delete(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "tok", &domain.Principal{UserID: 1}, time.Minute))
	require.NoError(t, store.Delete(ctx, "tok"))

	_, err = store.Get(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_NotConfigured(t *testing.T) {
	store := NewRedisStore(nil)
	_, err := store.Get(context.Background(), "tok")
	assert.Error(t, err)
	assert.Error(t, store.Ping(context.Background()))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "tok", &domain.Principal{UserID: 2}, time.Minute))

	p, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.UserID)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
}
