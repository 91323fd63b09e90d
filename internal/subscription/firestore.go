// internal/subscription/firestore.go
package subscription

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// FirestoreStore keeps subscription state on users/{uid} documents.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreStore(client *firestore.Client, collection string) *FirestoreStore {
	if collection == "" {
		collection = "users"
	}
	return &FirestoreStore{client: client, collection: collection}
}

// Fields renders rec as the merge payload.
func Fields(rec Record) map[string]interface{} {
	var subscribedAt interface{} = firestore.ServerTimestamp
	if !rec.SubscribedAt.IsZero() {
		subscribedAt = rec.SubscribedAt
	}
	return map[string]interface{}{
		FieldStatus:       rec.Status,
		FieldPlan:         string(rec.Plan),
		FieldSubscribedAt: subscribedAt,
		FieldReference:    rec.Reference,
	}
}

func (s *FirestoreStore) Upsert(ctx context.Context, uid string, rec Record) error {
	if uid == "" {
		return fmt.Errorf("%w: empty uid", ErrPersistence)
	}
	_, err := s.client.Collection(s.collection).Doc(uid).Set(ctx, Fields(rec), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *FirestoreStore) FindUserByEmail(ctx context.Context, email string) (string, bool, error) {
	iter := s.client.Collection(s.collection).
		Where(FieldEmail, "==", email).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query users by email: %w", err)
	}
	return doc.Ref.ID, true, nil
}
