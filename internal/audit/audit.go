// internal/audit/audit.go
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source names the entry point that produced an event.
type Source string

const (
	SourceCallable Source = "callable"
	SourceWebhook  Source = "webhook"
)

// Outcome classifies a verification attempt.
type Outcome string

const (
	OutcomeActivated         Outcome = "activated"
	OutcomeAmountMismatch    Outcome = "amount_mismatch"
	OutcomeStatusNotSuccess  Outcome = "status_not_success"
	OutcomeSignatureInvalid  Outcome = "signature_invalid"
	OutcomeGatewayError      Outcome = "gateway_error"
	OutcomePersistenceFailed Outcome = "persistence_failed"
	OutcomeUserNotFound      Outcome = "user_not_found"
	OutcomeReferenceConflict Outcome = "reference_conflict"
	OutcomeAmountUnmatched   Outcome = "amount_unmatched"
	OutcomeIgnored           Outcome = "ignored"
)

// Event is one row of the verification audit trail.
type Event struct {
	ID             string
	Source         Source
	Outcome        Outcome
	Reference      string
	UserID         string
	Email          string
	Plan           string
	ExpectedAmount int64
	ReceivedAmount int64
	Detail         string
	At             time.Time
}

// Recorder persists audit events. Failures must never change a response.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

const schemaDDL = `CREATE TABLE IF NOT EXISTS payment_audit_events (
	id              UUID PRIMARY KEY,
	source          TEXT NOT NULL,
	outcome         TEXT NOT NULL,
	reference       TEXT NOT NULL DEFAULT '',
	user_id         TEXT NOT NULL DEFAULT '',
	email           TEXT NOT NULL DEFAULT '',
	plan            TEXT NOT NULL DEFAULT '',
	expected_amount BIGINT NOT NULL DEFAULT 0,
	received_amount BIGINT NOT NULL DEFAULT 0,
	detail          TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL
)`

const insertQuery = `INSERT INTO payment_audit_events
	(id, source, outcome, reference, user_id, email, plan, expected_amount, received_amount, detail, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

type PostgresRecorder struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db, now: time.Now}
}

// EnsureSchema creates the audit table if it does not exist.
func (r *PostgresRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create payment_audit_events: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) Record(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = r.now().UTC()
	}

	_, err := r.db.ExecContext(ctx, insertQuery,
		ev.ID, string(ev.Source), string(ev.Outcome), ev.Reference, ev.UserID, ev.Email,
		ev.Plan, ev.ExpectedAmount, ev.ReceivedAmount, ev.Detail, ev.At,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// NopRecorder discards events. Used when Postgres is not configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Event) error { return nil }
