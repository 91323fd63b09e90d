// internal/endpoints/verify-payment/handler.go
package verifypayment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"studybuddy-payments/internal/audit"
	"studybuddy-payments/internal/common/auth"
	apperrors "studybuddy-payments/internal/common/errors"
	"studybuddy-payments/internal/common/logger"
	"studybuddy-payments/internal/common/metrics"
	"studybuddy-payments/internal/common/paystack"
	"studybuddy-payments/internal/common/validation"
	"studybuddy-payments/internal/plans"
	"studybuddy-payments/internal/subscription"

	"github.com/gin-gonic/gin"
)

const (
	Endpoint = "verifyPaystackPayment"
	Path     = "/" + Endpoint
)

type Handler struct {
	config   *Config
	registry *plans.Registry
	gateway  paystack.Verifier
	upgrader *subscription.Upgrader
	audit    audit.Recorder
	schema   *validation.Schema
	errs     *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewHandler(
	config *Config,
	registry *plans.Registry,
	gateway paystack.Verifier,
	upgrader *subscription.Upgrader,
	recorder audit.Recorder,
	log logger.Logger,
) *Handler {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	l := log.WithFields(map[string]interface{}{"endpoint": Endpoint})
	return &Handler{
		config:   config,
		registry: registry,
		gateway:  gateway,
		upgrader: upgrader,
		audit:    recorder,
		schema:   validation.MustSchema(validation.CallableVerifyRequest),
		errs:     apperrors.NewErrorHandler(l),
		logger:   l,
	}
}

// Handle serves POST /verifyPaystackPayment using the callable protocol.
func (h *Handler) Handle(c *gin.Context) {
	var caller *auth.Identity
	if id, ok := auth.IdentityFrom(c); ok {
		caller = &id
	}

	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxBodyBytes))
	if err != nil {
		raw = nil
	}

	output, err := h.Execute(c.Request.Context(), caller, raw)
	if err != nil {
		h.errs.HandleCallableError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Result: output})
}

// Execute runs the ordered verification checks. raw is the request body.
func (h *Handler) Execute(ctx context.Context, caller *auth.Identity, raw []byte) (*Output, error) {
	output, err := h.execute(ctx, caller, raw)
	if err != nil {
		metrics.VerificationsTotal.WithLabelValues(string(apperrors.AsStandardError(err).Code)).Inc()
		return nil, err
	}
	metrics.VerificationsTotal.WithLabelValues(string(audit.OutcomeActivated)).Inc()
	return output, nil
}

func (h *Handler) execute(ctx context.Context, caller *auth.Identity, raw []byte) (*Output, error) {
	if caller == nil || caller.UID == "" {
		return nil, apperrors.NewUnauthenticatedError("no verified identity on request")
	}
	log := logger.FromContext(ctx, h.logger).WithFields(map[string]interface{}{"uid": caller.UID})

	input, err := h.parseInput(raw)
	if err != nil {
		return nil, err
	}
	log = log.WithFields(map[string]interface{}{"reference": input.Reference})

	planID, ok := planArgument(input.Plan)
	if !ok {
		return nil, apperrors.NewInvalidPlanError(fmt.Sprint(input.Plan))
	}
	plan, err := h.registry.Resolve(planID)
	if err != nil {
		return nil, apperrors.NewInvalidPlanError(planID)
	}

	if !h.config.Configured() || h.gateway == nil {
		return nil, apperrors.NewGatewayNotConfiguredError()
	}

	ev := audit.Event{
		Source:         audit.SourceCallable,
		Reference:      input.Reference,
		UserID:         caller.UID,
		Email:          caller.Email,
		Plan:           string(plan.ID),
		ExpectedAmount: plan.AmountMinorUnits,
	}

	tx, err := h.gateway.VerifyTransaction(ctx, input.Reference)
	if err != nil {
		if errors.Is(err, paystack.ErrVerificationRejected) {
			ev.Outcome, ev.Detail = audit.OutcomeStatusNotSuccess, err.Error()
			h.record(ctx, ev)
			return nil, apperrors.NewPaymentNotSuccessfulError("rejected")
		}
		ev.Outcome, ev.Detail = audit.OutcomeGatewayError, err.Error()
		h.record(ctx, ev)
		return nil, apperrors.NewGatewayUnavailableError(err)
	}

	ev.ReceivedAmount = tx.Amount
	if tx.Customer.Email != "" {
		ev.Email = tx.Customer.Email
	}

	if !tx.Successful() {
		ev.Outcome, ev.Detail = audit.OutcomeStatusNotSuccess, tx.Status
		h.record(ctx, ev)
		return nil, apperrors.NewPaymentNotSuccessfulError(tx.Status)
	}

	if tx.Amount != plan.AmountMinorUnits {
		log.Warn("payment amount mismatch", map[string]interface{}{
			"plan":     string(plan.ID),
			"expected": plan.AmountMinorUnits,
			"received": tx.Amount,
		})
		ev.Outcome = audit.OutcomeAmountMismatch
		h.record(ctx, ev)
		return nil, apperrors.NewAmountMismatchError(plan.AmountMinorUnits, tx.Amount)
	}

	_, err = h.upgrader.Apply(ctx, subscription.Upgrade{
		Source:    string(audit.SourceCallable),
		UserID:    caller.UID,
		Email:     ev.Email,
		Plan:      plan,
		Reference: input.Reference,
		Amount:    tx.Amount,
	})
	if err != nil {
		if errors.Is(err, subscription.ErrReferenceConflict) {
			ev.Outcome = audit.OutcomeReferenceConflict
			h.record(ctx, ev)
			return nil, apperrors.NewReferenceAlreadyUsedError(input.Reference)
		}
		ev.Outcome, ev.Detail = audit.OutcomePersistenceFailed, err.Error()
		h.record(ctx, ev)
		return nil, apperrors.NewSubscriptionUpdateFailedError(input.Reference, err)
	}

	ev.Outcome = audit.OutcomeActivated
	h.record(ctx, ev)

	return &Output{
		Success: true,
		Plan:    string(plan.ID),
		Message: SuccessMessage,
	}, nil
}

func (h *Handler) parseInput(raw []byte) (*Input, error) {
	if len(raw) == 0 {
		return nil, apperrors.NewReferenceRequiredError("empty body")
	}
	if res := h.schema.ValidateBytes(raw); !res.Valid {
		msgs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			msgs = append(msgs, e.Field+": "+e.Message)
		}
		return nil, apperrors.NewReferenceRequiredError(strings.Join(msgs, "; "))
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, apperrors.NewReferenceRequiredError(err.Error())
	}
	return &req.Data, nil
}

// planArgument maps the raw plan value to an id. Falsy values select the
// default plan; ok is false for any other non-string.
func planArgument(v interface{}) (string, bool) {
	switch p := v.(type) {
	case nil:
		return "", true
	case string:
		return p, true
	case bool:
		return "", !p
	case float64:
		return "", p == 0
	default:
		return "", false
	}
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
