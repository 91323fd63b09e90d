// internal/endpoints/paystack-webhook/handler.go
package paystackwebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"studybuddy-payments/internal/audit"
	"studybuddy-payments/internal/common/config"
	"studybuddy-payments/internal/common/logger"
	"studybuddy-payments/internal/common/metrics"
	"studybuddy-payments/internal/common/paystack"
	"studybuddy-payments/internal/common/validation"
	"studybuddy-payments/internal/plans"
	"studybuddy-payments/internal/subscription"

	"github.com/gin-gonic/gin"
)

const (
	Endpoint = "paystackWebhook"
	Path     = "/" + Endpoint
)

var ErrUserLookupFailed = errors.New("USER_LOOKUP_FAILED")

type Handler struct {
	config   *Config
	registry *plans.Registry
	store    subscription.Store
	upgrader *subscription.Upgrader
	audit    audit.Recorder
	schema   *validation.Schema
	logger   logger.Logger
}

func NewHandler(
	config *Config,
	registry *plans.Registry,
	store subscription.Store,
	upgrader *subscription.Upgrader,
	recorder audit.Recorder,
	log logger.Logger,
) *Handler {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Handler{
		config:   config,
		registry: registry,
		store:    store,
		upgrader: upgrader,
		audit:    recorder,
		schema:   validation.MustSchema(validation.ChargeEvent),
		logger:   log.WithFields(map[string]interface{}{"endpoint": Endpoint}),
	}
}

// Handle serves /paystackWebhook for every method.
func (h *Handler) Handle(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx, h.logger)

	if c.Request.Method != http.MethodPost {
		metrics.WebhookEventsTotal.WithLabelValues("method_not_allowed").Inc()
		c.Header("Allow", http.MethodPost)
		c.String(http.StatusMethodNotAllowed, BodyMethodNotAllowed)
		return
	}

	if h.config.SecretKey == "" {
		metrics.WebhookEventsTotal.WithLabelValues("misconfigured").Inc()
		log.Error("paystack secret key is not configured, refusing webhook", nil)
		c.String(http.StatusInternalServerError, BodyMisconfigured)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxBodyBytes))
	if err != nil || !paystack.VerifySignature(h.config.SecretKey, raw, c.GetHeader(paystack.SignatureHeader)) {
		fields := map[string]interface{}{
			"remoteAddr": c.ClientIP(),
			"bodyBytes":  len(raw),
		}
		if err != nil {
			fields["error"] = err.Error()
		}
		log.Warn("webhook signature verification failed", fields)
		// unauthenticated traffic never reaches the audit table
		metrics.WebhookEventsTotal.WithLabelValues(string(audit.OutcomeSignatureInvalid)).Inc()
		c.String(http.StatusUnauthorized, BodyInvalidSignature)
		return
	}

	out, err := h.Execute(ctx, raw)
	if err != nil {
		log.Error("webhook processing failed, acknowledging anyway", map[string]interface{}{
			"outcome": string(out.Outcome),
			"error":   err.Error(),
		})
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(out.Outcome)).Inc()
	c.String(http.StatusOK, BodyOK)
}

// Execute processes an authenticated delivery. The returned error is for
// logging; it never changes the acknowledgement.
func (h *Handler) Execute(ctx context.Context, raw []byte) (*Output, error) {
	log := logger.FromContext(ctx, h.logger)

	if res := h.schema.ValidateBytes(raw); !res.Valid {
		log.Info("ignoring malformed webhook payload", map[string]interface{}{"errors": len(res.Errors)})
		return &Output{Outcome: audit.OutcomeIgnored}, nil
	}

	var event paystack.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Info("ignoring undecodable webhook payload", map[string]interface{}{"error": err.Error()})
		return &Output{Outcome: audit.OutcomeIgnored}, nil
	}

	if event.Event != paystack.EventChargeSuccess {
		log.Debug("ignoring webhook event", map[string]interface{}{"event": event.Event})
		return &Output{Outcome: audit.OutcomeIgnored}, nil
	}

	email := event.Data.Customer.Email
	reference := event.Data.Reference
	amount := event.Data.Amount
	log = log.WithFields(map[string]interface{}{"reference": reference, "email": email, "amount": amount})

	if email == "" || reference == "" {
		log.Info("ignoring charge event without email or reference", nil)
		return &Output{Outcome: audit.OutcomeIgnored}, nil
	}

	ev := audit.Event{
		Source:         audit.SourceWebhook,
		Reference:      reference,
		Email:          email,
		ReceivedAmount: amount,
	}

	uid, found, err := h.store.FindUserByEmail(ctx, email)
	if err != nil {
		return &Output{Outcome: audit.OutcomeIgnored}, fmt.Errorf("%w: %v", ErrUserLookupFailed, err)
	}
	if !found {
		log.Info("no user for charge email", nil)
		ev.Outcome = audit.OutcomeUserNotFound
		h.record(ctx, ev)
		return &Output{Outcome: audit.OutcomeUserNotFound}, nil
	}
	ev.UserID = uid
	log = log.WithFields(map[string]interface{}{"uid": uid})

	plan, matched := h.registry.MatchAmount(amount)
	if !matched {
		ev.Outcome = audit.OutcomeAmountUnmatched
		if h.config.UnmatchedAmountPolicy == config.UnmatchedAmountReject {
			log.Warn("charge amount matches no plan, not crediting", nil)
			ev.Detail = "rejected"
			h.record(ctx, ev)
			return &Output{Outcome: audit.OutcomeAmountUnmatched, UserID: uid}, nil
		}
		plan = h.registry.Default()
		log.Warn("charge amount matches no plan, crediting default plan", map[string]interface{}{
			"plan": string(plan.ID),
		})
		ev.Plan, ev.ExpectedAmount = string(plan.ID), plan.AmountMinorUnits
		ev.Detail = "credited default plan"
		h.record(ctx, ev)
	}
	ev.Plan, ev.ExpectedAmount, ev.Detail = string(plan.ID), plan.AmountMinorUnits, ""

	_, err = h.upgrader.Apply(ctx, subscription.Upgrade{
		Source:    string(audit.SourceWebhook),
		UserID:    uid,
		Email:     email,
		Plan:      plan,
		Reference: reference,
		Amount:    amount,
	})
	if err != nil {
		if errors.Is(err, subscription.ErrReferenceConflict) {
			ev.Outcome = audit.OutcomeReferenceConflict
			h.record(ctx, ev)
			return &Output{Outcome: audit.OutcomeReferenceConflict, UserID: uid, Plan: string(plan.ID)}, nil
		}
		ev.Outcome, ev.Detail = audit.OutcomePersistenceFailed, err.Error()
		h.record(ctx, ev)
		return &Output{Outcome: audit.OutcomePersistenceFailed, UserID: uid, Plan: string(plan.ID)}, err
	}

	ev.Outcome = audit.OutcomeActivated
	h.record(ctx, ev)
	return &Output{Outcome: audit.OutcomeActivated, UserID: uid, Plan: string(plan.ID)}, nil
}

func (h *Handler) record(ctx context.Context, ev audit.Event) {
	if err := h.audit.Record(ctx, ev); err != nil {
		h.logger.Error("failed to record audit event", map[string]interface{}{
			"outcome":   string(ev.Outcome),
			"reference": ev.Reference,
			"error":     err.Error(),
		})
	}
}
