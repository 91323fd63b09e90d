// internal/subscription/store.go
package subscription

import (
	"context"
	"errors"
	"time"

	"studybuddy-payments/internal/plans"
)

const (
	StatusFree = "free"
	StatusPro  = "pro"
)

// Firestore field names of the subscription group on a user document.
const (
	FieldStatus       = "subscriptionStatus"
	FieldPlan         = "subscriptionPlan"
	FieldSubscribedAt = "subscribedAt"
	FieldReference    = "paystackReference"
	FieldEmail        = "email"
)

var ErrPersistence = errors.New("SUBSCRIPTION_WRITE_FAILED")

// Record is the subscription field group merged into users/{uid}.
// A zero SubscribedAt is written as the datastore's server timestamp.
type Record struct {
	Status       string
	Plan         plans.PlanID
	SubscribedAt time.Time
	Reference    string
}

// Store reads and writes user subscription state.
type Store interface {
	// Upsert merges exactly the Record fields into the user's document,
	// creating it when absent. Repeating the call with the same Record
	// leaves the document unchanged.
	Upsert(ctx context.Context, uid string, rec Record) error
	// FindUserByEmail returns the first user whose email matches exactly.
	FindUserByEmail(ctx context.Context, email string) (uid string, found bool, err error)
}
