// internal/subscription/upgrader.go
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studybuddy-payments/internal/alerts"
	"studybuddy-payments/internal/common/logger"
	"studybuddy-payments/internal/common/metrics"
	"studybuddy-payments/internal/ledger"
	"studybuddy-payments/internal/plans"
)

// ErrReferenceConflict means the payment reference was already applied to another user.
var ErrReferenceConflict = errors.New("REFERENCE_ALREADY_USED")

// Upgrade is a verified payment to apply to a user.
type Upgrade struct {
	Source    string
	UserID    string
	Email     string
	Plan      plans.Plan
	Reference string
	Amount    int64
}

// Upgrader applies the subscription merge shared by both payment entry points.
type Upgrader struct {
	store    Store
	ledger   ledger.Ledger
	notifier alerts.Notifier
	logger   logger.Logger
	now      func() time.Time
}

type Option func(*Upgrader)

// WithClock stamps records with now() instead of the datastore server time.
func WithClock(now func() time.Time) Option {
	return func(u *Upgrader) { u.now = now }
}

func NewUpgrader(store Store, l ledger.Ledger, notifier alerts.Notifier, log logger.Logger, opts ...Option) *Upgrader {
	if l == nil {
		l = ledger.NopLedger{}
	}
	if notifier == nil {
		notifier = alerts.NopNotifier{}
	}
	u := &Upgrader{
		store:    store,
		ledger:   l,
		notifier: notifier,
		logger:   log.WithFields(map[string]interface{}{"component": "upgrader"}),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Apply claims the reference for the user and merges the pro subscription.
// It returns ErrReferenceConflict without writing when another user owns the
// reference, and an ErrPersistence-wrapped error when the write fails. A
// claim is never given back once made.
func (u *Upgrader) Apply(ctx context.Context, up Upgrade) (Record, error) {
	fields := map[string]interface{}{
		"source":    up.Source,
		"uid":       up.UserID,
		"reference": up.Reference,
		"plan":      string(up.Plan.ID),
	}

	claim, ledgerErr := u.ledger.Claim(ctx, up.Reference, up.UserID)
	if ledgerErr != nil {
		u.logger.Warn("reference ledger unavailable, continuing without it", withErr(fields, ledgerErr))
		claim = ledger.ClaimNew
	}
	if claim == ledger.ClaimOtherOwner {
		u.logger.Warn("payment reference already applied to another user", fields)
		metrics.SubscriptionWritesTotal.WithLabelValues(up.Source, "conflict").Inc()
		return Record{}, fmt.Errorf("%w: %s", ErrReferenceConflict, up.Reference)
	}

	rec := Record{
		Status:    StatusPro,
		Plan:      up.Plan.ID,
		Reference: up.Reference,
	}
	if u.now != nil {
		rec.SubscribedAt = u.now().UTC()
	}

	if err := u.store.Upsert(ctx, up.UserID, rec); err != nil {
		metrics.SubscriptionWritesTotal.WithLabelValues(up.Source, "error").Inc()
		u.logger.Error("subscription write failed after verified payment", withErr(fields, err))

		// The claim stays with this user: a concurrent same-owner write may
		// already have committed, and a retry by the same user re-applies.

		alert := alerts.Alert{
			Source:    up.Source,
			Reference: up.Reference,
			UserID:    up.UserID,
			Email:     up.Email,
			Plan:      string(up.Plan.ID),
			Amount:    up.Amount,
			Error:     err.Error(),
			At:        u.clock(),
		}
		if alertErr := u.notifier.PersistenceFailed(ctx, alert); alertErr != nil {
			u.logger.Error("failed to send persistence alert", withErr(fields, alertErr))
		}

		if errors.Is(err, ErrPersistence) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	result := "applied"
	if claim == ledger.ClaimSameOwner {
		result = "reapplied"
	}
	metrics.SubscriptionWritesTotal.WithLabelValues(up.Source, result).Inc()
	u.logger.Info("subscription activated", mergeFields(fields, map[string]interface{}{"result": result}))

	if claim != ledger.ClaimSameOwner {
		receipt := alerts.Receipt{
			Email:     up.Email,
			PlanName:  up.Plan.DisplayName,
			Amount:    up.Amount,
			Reference: up.Reference,
			At:        u.clock(),
		}
		if err := u.notifier.SubscriptionActivated(ctx, receipt); err != nil {
			u.logger.Warn("failed to send payment receipt", withErr(fields, err))
		}
	}

	return rec, nil
}

func (u *Upgrader) clock() time.Time {
	if u.now != nil {
		return u.now().UTC()
	}
	return time.Now().UTC()
}

func withErr(fields map[string]interface{}, err error) map[string]interface{} {
	return mergeFields(fields, map[string]interface{}{"error": err.Error()})
}

func mergeFields(a, b map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
