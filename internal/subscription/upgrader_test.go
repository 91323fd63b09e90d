// internal/subscription/upgrader_test.go
package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"studybuddy-payments/internal/alerts"
	"studybuddy-payments/internal/common/logger"
	"studybuddy-payments/internal/ledger"
	"studybuddy-payments/internal/plans"

	"cloud.google.com/go/firestore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	alerts   []alerts.Alert
	receipts []alerts.Receipt
	err      error
}

func (r *recordingNotifier) PersistenceFailed(_ context.Context, a alerts.Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

func (r *recordingNotifier) SubscriptionActivated(_ context.Context, rc alerts.Receipt) error {
	r.receipts = append(r.receipts, rc)
	return r.err
}

type failingLedger struct{ ledger.NopLedger }

func (failingLedger) Claim(context.Context, string, string) (ledger.ClaimResult, error) {
	return ledger.ClaimNew, ledger.ErrLedgerUnavailable
}

func newRedisLedger(t *testing.T) (*ledger.RedisLedger, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return ledger.NewRedisLedger(client, time.Hour), mr
}

func proUpgrade(uid, ref string) Upgrade {
	return Upgrade{
		Source:    "callable",
		UserID:    uid,
		Email:     uid + "@x.com",
		Plan:      plans.MustDefaultRegistry().Default(),
		Reference: ref,
		Amount:    150000,
	}
}

func createTestUpgrader(t *testing.T, store Store, l ledger.Ledger, n alerts.Notifier) *Upgrader {
	return NewUpgrader(store, l, n, logger.NewTestLogger(t), WithClock(func() time.Time { return fixedNow }))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestUpgrader_Apply_WritesRecord(t *testing.T) {
	store := NewMemoryStore()
	n := &recordingNotifier{}
	u := createTestUpgrader(t, store, nil, n)

	rec, err := u.Apply(context.Background(), proUpgrade("user-1", "txn_abc123"))
	require.NoError(t, err)

	want := Record{Status: StatusPro, Plan: plans.Pro, SubscribedAt: fixedNow, Reference: "txn_abc123"}
	assert.Equal(t, want, rec)

	stored, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, want, stored)

	require.Len(t, n.receipts, 1)
	assert.Equal(t, "Pro", n.receipts[0].PlanName)
	assert.Equal(t, "user-1@x.com", n.receipts[0].Email)
	assert.Empty(t, n.alerts)
}

func TestUpgrader_Apply_Idempotent(t *testing.T) {
	store := NewMemoryStore()
	l, _ := newRedisLedger(t)
	n := &recordingNotifier{}
	u := createTestUpgrader(t, store, l, n)

	_, err := u.Apply(context.Background(), proUpgrade("user-1", "txn_abc123"))
	require.NoError(t, err)
	first, _ := store.Get("user-1")

	_, err = u.Apply(context.Background(), proUpgrade("user-1", "txn_abc123"))
	require.NoError(t, err)
	second, _ := store.Get("user-1")

	assert.Equal(t, first, second)
	assert.Equal(t, 2, store.Writes())
	assert.Len(t, n.receipts, 1, "receipt is only sent for the first application")
}

func TestUpgrader_Apply_ReferenceOwnedByOtherUser(t *testing.T) {
	store := NewMemoryStore()
	l, _ := newRedisLedger(t)
	u := createTestUpgrader(t, store, l, nil)

	_, err := u.Apply(context.Background(), proUpgrade("user-1", "txn_abc123"))
	require.NoError(t, err)

	_, err = u.Apply(context.Background(), proUpgrade("user-2", "txn_abc123"))
	assert.ErrorIs(t, err, ErrReferenceConflict)

	_, ok := store.Get("user-2")
	assert.False(t, ok)
	assert.Equal(t, 1, store.Writes())
}

func TestUpgrader_Apply_LedgerFailureDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()
	u := createTestUpgrader(t, store, failingLedger{}, nil)

	_, err := u.Apply(context.Background(), proUpgrade("user-1", "ref"))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Writes())
}

// ==========================
// Error Handling Tests
// ==========================

func TestUpgrader_Apply_WriteFailure(t *testing.T) {
	store := NewMemoryStore()
	store.UpsertErr = errors.New("deadline exceeded")
	l, mr := newRedisLedger(t)
	n := &recordingNotifier{}
	u := createTestUpgrader(t, store, l, n)

	_, err := u.Apply(context.Background(), proUpgrade("user-1", "txn_abc123"))
	assert.ErrorIs(t, err, ErrPersistence)

	owner, err := mr.Get(ledger.KeyPrefix + "txn_abc123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner, "claim is kept after a failed write")

	require.Len(t, n.alerts, 1)
	assert.Equal(t, "txn_abc123", n.alerts[0].Reference)
	assert.Equal(t, "callable", n.alerts[0].Source)
	assert.Contains(t, n.alerts[0].Error, "deadline exceeded")
	assert.Empty(t, n.receipts)

	store.UpsertErr = nil
	_, err = u.Apply(context.Background(), proUpgrade("user-1", "txn_abc123"))
	require.NoError(t, err)
}

// interleavingStore runs during() inside the first Upsert and then fails
// that write, modelling a concurrent request that commits first.
type interleavingStore struct {
	*MemoryStore
	during func()
	err    error
}

func (s *interleavingStore) Upsert(ctx context.Context, uid string, rec Record) error {
	if s.during != nil {
		during := s.during
		s.during = nil
		during()
		return s.err
	}
	return s.MemoryStore.Upsert(ctx, uid, rec)
}

func TestUpgrader_Apply_FailedWriteAfterConcurrentSuccessKeepsClaim(t *testing.T) {
	ctx := context.Background()
	store := &interleavingStore{MemoryStore: NewMemoryStore(), err: errors.New("deadline exceeded")}
	l, mr := newRedisLedger(t)
	u := createTestUpgrader(t, store, l, nil)

	var concurrentErr error
	store.during = func() {
		_, concurrentErr = u.Apply(ctx, proUpgrade("user-1", "txn_abc123"))
	}

	_, err := u.Apply(ctx, proUpgrade("user-1", "txn_abc123"))
	assert.ErrorIs(t, err, ErrPersistence)
	require.NoError(t, concurrentErr)
	assert.True(t, mr.Exists(ledger.KeyPrefix+"txn_abc123"))

	_, err = u.Apply(ctx, proUpgrade("user-2", "txn_abc123"))
	assert.ErrorIs(t, err, ErrReferenceConflict)
	_, credited := store.Get("user-2")
	assert.False(t, credited)

	stored, ok := store.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, StatusPro, stored.Status)
}

func TestUpgrader_Apply_NotifierErrorsIgnored(t *testing.T) {
	store := NewMemoryStore()
	n := &recordingNotifier{err: errors.New("ses down")}
	u := createTestUpgrader(t, store, nil, n)

	_, err := u.Apply(context.Background(), proUpgrade("user-1", "ref"))
	require.NoError(t, err)

	store.UpsertErr = errors.New("unavailable")
	_, err = u.Apply(context.Background(), proUpgrade("user-1", "ref-2"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Len(t, n.alerts, 1)
}

func TestUpgrader_Apply_ServerTimestampWithoutClock(t *testing.T) {
	store := NewMemoryStore()
	u := NewUpgrader(store, nil, nil, logger.NewNoOpLogger())

	rec, err := u.Apply(context.Background(), proUpgrade("user-1", "ref"))
	require.NoError(t, err)
	assert.True(t, rec.SubscribedAt.IsZero())

	assert.Equal(t, firestore.ServerTimestamp, Fields(rec)[FieldSubscribedAt])
}

func TestFields(t *testing.T) {
	rec := Record{Status: StatusPro, Plan: plans.ProYearly, SubscribedAt: fixedNow, Reference: "r"}
	fields := Fields(rec)

	assert.Len(t, fields, 4)
	assert.Equal(t, "pro", fields[FieldStatus])
	assert.Equal(t, "pro_yearly", fields[FieldPlan])
	assert.Equal(t, fixedNow, fields[FieldSubscribedAt])
	assert.Equal(t, "r", fields[FieldReference])
}
