// internal/common/database/firebase.go
package database

import (
	"context"
	"errors"
	"fmt"

	"studybuddy-payments/internal/common/config"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// FirebaseClients bundles the Admin SDK app with the two services this
// service talks to.
type FirebaseClients struct {
	App       *firebase.App
	Auth      *auth.Client
	Firestore *firestore.Client
}

// NewFirebase initializes the Admin SDK. With no credentials file the
// application default credentials (or FIRESTORE_EMULATOR_HOST) are used.
func NewFirebase(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseClients, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	conf := &firebase.Config{ProjectID: cfg.ProjectID}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	return &FirebaseClients{App: app, Auth: authClient, Firestore: fsClient}, nil
}

// Ping performs a cheap read so readiness reflects Firestore reachability.
func (c *FirebaseClients) Ping(ctx context.Context) error {
	iter := c.Firestore.Collections(ctx)
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

func (c *FirebaseClients) Close() error {
	if c.Firestore != nil {
		return c.Firestore.Close()
	}
	return nil
}
