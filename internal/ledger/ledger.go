// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClaimResult is the outcome of claiming a payment reference for a user.
type ClaimResult int

const (
	// ClaimNew means no user had applied the reference before.
	ClaimNew ClaimResult = iota
	// ClaimSameOwner means the reference was already applied to this user.
	ClaimSameOwner
	// ClaimOtherOwner means the reference belongs to a different user.
	ClaimOtherOwner
)

func (r ClaimResult) String() string {
	switch r {
	case ClaimNew:
		return "new"
	case ClaimSameOwner:
		return "same_owner"
	case ClaimOtherOwner:
		return "other_owner"
	default:
		return "unknown"
	}
}

const (
	KeyPrefix  = "paystack:ref:"
	DefaultTTL = 400 * 24 * time.Hour
)

var ErrLedgerUnavailable = errors.New("LEDGER_UNAVAILABLE")

// Ledger remembers which user each processed payment reference was applied to.
// Claims are permanent until the TTL expires.
type Ledger interface {
	Claim(ctx context.Context, reference, uid string) (ClaimResult, error)
	Owner(ctx context.Context, reference string) (uid string, found bool, err error)
}

// RedisLedger stores reference ownership as paystack:ref:{reference} -> uid.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLedger{client: client, ttl: ttl}
}

func key(reference string) string {
	return KeyPrefix + reference
}

func (l *RedisLedger) Claim(ctx context.Context, reference, uid string) (ClaimResult, error) {
	ok, err := l.client.SetNX(ctx, key(reference), uid, l.ttl).Result()
	if err != nil {
		return ClaimNew, fmt.Errorf("%w: setnx: %v", ErrLedgerUnavailable, err)
	}
	if ok {
		return ClaimNew, nil
	}

	owner, found, err := l.Owner(ctx, reference)
	if err != nil {
		return ClaimNew, err
	}
	if !found {
		// expired between SETNX and GET; claim again once
		ok, err := l.client.SetNX(ctx, key(reference), uid, l.ttl).Result()
		if err != nil {
			return ClaimNew, fmt.Errorf("%w: setnx: %v", ErrLedgerUnavailable, err)
		}
		if ok {
			return ClaimNew, nil
		}
		return ClaimOtherOwner, nil
	}
	if owner == uid {
		return ClaimSameOwner, nil
	}
	return ClaimOtherOwner, nil
}

func (l *RedisLedger) Owner(ctx context.Context, reference string) (string, bool, error) {
	owner, err := l.client.Get(ctx, key(reference)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get: %v", ErrLedgerUnavailable, err)
	}
	return owner, true, nil
}

// NopLedger treats every reference as new. Used when Redis is not configured.
type NopLedger struct{}

func (NopLedger) Claim(context.Context, string, string) (ClaimResult, error) { return ClaimNew, nil }

func (NopLedger) Owner(context.Context, string) (string, bool, error) { return "", false, nil }
