package sessions

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stashbot/pkg/enums"
)

func sampleSession(buyerID int64, expires time.Time) Session {
	return Session{
		BuyerID:            buyerID,
		ProductID:          7,
		ProductName:        "Widget",
		UnitPrice:          decimal.RequireFromString("10.00"),
		Amount:             decimal.RequireFromString("0.2"),
		Currency:           enums.CurrencyLTC,
		DestinationAddress: "ltc1qexampleaddress000000",
		CreatedAt:          expires.Add(-DefaultTTL),
		ExpiresAt:          expires,
	}
}

func TestMemoryStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	first := sampleSession(1, base.Add(time.Minute))
	second := sampleSession(1, base.Add(time.Minute))
	second.ProductID = 9
	require.NoError(t, store.Put(ctx, first))
	require.NoError(t, store.Put(ctx, second))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint(9), got.ProductID)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	now := base
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, sampleSession(1, base.Add(time.Minute))))
	require.NoError(t, store.Put(ctx, sampleSession(2, base.Add(time.Hour))))

	now = base.Add(2 * time.Minute)
	_, err := store.Get(ctx, 1)
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Put(ctx, sampleSession(3, base.Add(time.Minute))))
	require.Equal(t, 1, store.Sweep())

	_, err = store.Get(ctx, 2)
	require.NoError(t, err)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, sampleSession(1, time.Now().Add(time.Hour))))
	require.NoError(t, store.Delete(ctx, 1))
	require.NoError(t, store.Delete(ctx, 1))

	_, err := store.Get(ctx, 1)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeKV) SessionKey(buyerID int64) string {
	return "sb:session:" + strconv.FormatInt(buyerID, 10)
}

func TestRedisStoreRoundTripWithTTL(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store, err := NewRedisStore(kv)
	require.NoError(t, err)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	session := sampleSession(42, base.Add(30*time.Minute))
	require.NoError(t, store.Put(ctx, session))
	require.Equal(t, 30*time.Minute, kv.ttls["sb:session:42"])

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.True(t, got.Amount.Equal(session.Amount))
	require.Equal(t, session.DestinationAddress, got.DestinationAddress)

	require.NoError(t, store.Delete(ctx, 42))
	_, err = store.Get(ctx, 42)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreSurfacesBackendErrors(t *testing.T) {
	kv := newFakeKV()
	kv.err = errors.New("connection refused")
	store, err := NewRedisStore(kv)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSessionNotFound)
}
