// internal/ledger/ledger_test.go
package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newMiniredisLedger(t *testing.T, ttl time.Duration) (*RedisLedger, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLedger(client, ttl), mr
}

// ==========================
// Claim Semantics
// ==========================

func TestRedisLedger_Claim(t *testing.T) {
	ctx := context.Background()
	l, mr := newMiniredisLedger(t, time.Hour)

	res, err := l.Claim(ctx, "txn_abc123", "user-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimNew, res)

	val, err := mr.Get(KeyPrefix + "txn_abc123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", val)
	assert.Equal(t, time.Hour, mr.TTL(KeyPrefix+"txn_abc123"))

	res, err = l.Claim(ctx, "txn_abc123", "user-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimSameOwner, res)

	res, err = l.Claim(ctx, "txn_abc123", "user-2")
	require.NoError(t, err)
	assert.Equal(t, ClaimOtherOwner, res)

	owner, found, err := l.Owner(ctx, "txn_abc123")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "user-1", owner)
}

func TestRedisLedger_ClaimAfterExpiry(t *testing.T) {
	ctx := context.Background()
	l, mr := newMiniredisLedger(t, time.Minute)

	_, err := l.Claim(ctx, "ref", "user-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	res, err := l.Claim(ctx, "ref", "user-2")
	require.NoError(t, err)
	assert.Equal(t, ClaimNew, res)
}

func TestRedisLedger_Owner_Missing(t *testing.T) {
	l, _ := newMiniredisLedger(t, 0)

	owner, found, err := l.Owner(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, owner)
}

func TestRedisLedger_DefaultTTL(t *testing.T) {
	l, mr := newMiniredisLedger(t, 0)

	_, err := l.Claim(context.Background(), "ref", "user-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, mr.TTL(KeyPrefix+"ref"))
}

// ==========================
// Error Handling Tests
// ==========================

func TestRedisLedger_Claim_SetNXError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRedisLedger(client, time.Hour)

	mock.ExpectSetNX(KeyPrefix+"ref", "user-1", time.Hour).SetErr(errors.New("connection refused"))

	res, err := l.Claim(context.Background(), "ref", "user-1")
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
	assert.Equal(t, ClaimNew, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLedger_Claim_GetError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRedisLedger(client, time.Hour)

	mock.ExpectSetNX(KeyPrefix+"ref", "user-1", time.Hour).SetVal(false)
	mock.ExpectGet(KeyPrefix + "ref").SetErr(errors.New("timeout"))

	_, err := l.Claim(context.Background(), "ref", "user-1")
	assert.ErrorIs(t, err, ErrLedgerUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLedger_Claim_ExpiredBetweenCalls(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := NewRedisLedger(client, time.Hour)

	mock.ExpectSetNX(KeyPrefix+"ref", "user-1", time.Hour).SetVal(false)
	mock.ExpectGet(KeyPrefix + "ref").RedisNil()
	mock.ExpectSetNX(KeyPrefix+"ref", "user-1", time.Hour).SetVal(true)

	res, err := l.Claim(context.Background(), "ref", "user-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimNew, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNopLedger(t *testing.T) {
	var l Ledger = NopLedger{}
	ctx := context.Background()

	res, err := l.Claim(ctx, "ref", "user-1")
	require.NoError(t, err)
	assert.Equal(t, ClaimNew, res)

	res, err = l.Claim(ctx, "ref", "user-2")
	require.NoError(t, err)
	assert.Equal(t, ClaimNew, res)

	_, found, err := l.Owner(ctx, "ref")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClaimResult_String(t *testing.T) {
	assert.Equal(t, "new", ClaimNew.String())
	assert.Equal(t, "same_owner", ClaimSameOwner.String())
	assert.Equal(t, "other_owner", ClaimOtherOwner.String())
	assert.Equal(t, "unknown", ClaimResult(9).String())
}
