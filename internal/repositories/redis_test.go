package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/mekanizma/modli/backend/internal/errs"
	"github.com/mekanizma/modli/backend/internal/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestSessionStore_Lifecycle(t *testing.T) {
	mr, rdb := newRedis(t)
	store := NewSessionStore(rdb, time.Hour)
	ctx := context.Background()

	token, err := store.Create(ctx, "admin@modli.app")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, time.Hour, mr.TTL(sessionKeyPrefix+token))

	email, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "admin@modli.app", email)

	require.NoError(t, store.Delete(ctx, token))
	_, err = store.Lookup(ctx, token)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestSessionStore_Expiry(t *testing.T) {
	mr, rdb := newRedis(t)
	store := NewSessionStore(rdb, time.Minute)
	ctx := context.Background()

	token, err := store.Create(ctx, "admin@modli.app")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Lookup(ctx, token)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestSessionStore_EmptyToken(t *testing.T) {
	_, rdb := newRedis(t)
	_, err := NewSessionStore(rdb, time.Minute).Lookup(context.Background(), "")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestDeliveryStatusStore_RoundTrip(t *testing.T) {
	mr, rdb := newRedis(t)
	store := NewDeliveryStatusStore(rdb)
	ctx := context.Background()

	status := &push.DeliveryStatus{
		LogID:        "log-1",
		TotalTokens:  2,
		SuccessCount: 1,
		FailureCount: 1,
		Results: []push.Result{
			{Token: "ExponentPushTo...", Platform: push.PlatformIOS, Success: true},
			{Token: "ExponentPushTo...", Platform: push.PlatformAndroid, Error: "DeviceNotRegistered"},
		},
		CompletedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, status))
	assert.Equal(t, deliveryStatusTTL, mr.TTL(deliveryStatusPrefix+"log-1"))

	got, err := store.Get(ctx, "log-1")
	require.NoError(t, err)
	assert.Equal(t, status.Results, got.Results)
	assert.Equal(t, 1, got.FailureCount)
	assert.True(t, status.CompletedAt.Equal(got.CompletedAt))

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
