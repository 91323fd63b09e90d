// Package errors provides standardized error handling for callable payment endpoints.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUnauthenticated          ErrorCode = "UNAUTHENTICATED"
	ErrCodeReferenceRequired        ErrorCode = "PAYMENT_REFERENCE_REQUIRED"
	ErrCodeInvalidPlan              ErrorCode = "INVALID_PLAN"
	ErrCodeGatewayNotConfigured     ErrorCode = "GATEWAY_NOT_CONFIGURED"
	ErrCodeGatewayUnavailable       ErrorCode = "GATEWAY_UNAVAILABLE"
	ErrCodePaymentNotSuccessful     ErrorCode = "PAYMENT_NOT_SUCCESSFUL"
	ErrCodeAmountMismatch           ErrorCode = "PAYMENT_AMOUNT_MISMATCH"
	ErrCodeReferenceAlreadyUsed     ErrorCode = "REFERENCE_ALREADY_USED"
	ErrCodeSubscriptionUpdateFailed ErrorCode = "SUBSCRIPTION_UPDATE_FAILED"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error. Message is what the
// caller sees; Details stays in logs.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Callable Error Integration
// ==========================

// Kind is the status string of the callable-function error envelope.
type Kind string

const (
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	KindAborted         Kind = "ABORTED"
	KindInternal        Kind = "INTERNAL"
)

// HTTPStatus maps a callable kind to its transport status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindAborted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// CallableError is the body of {"error": {...}} returned by callable endpoints.
type CallableError struct {
	Status  Kind   `json:"status"`
	Message string `json:"message"`
}

func (e *CallableError) Error() string {
	return fmt.Sprintf("CallableError[%s]: %s", e.Status, e.Message)
}

// Envelope wraps a CallableError for the wire.
type Envelope struct {
	Error *CallableError `json:"error"`
}

// ==========================
// 3. Error Constructors
// ==========================

// NewUnauthenticatedError is returned when no verified identity accompanies the call.
func NewUnauthenticatedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthenticated,
		Message:   "User must be logged in to verify payment.",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReferenceRequiredError creates a non-retryable validation error.
func NewReferenceRequiredError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReferenceRequired,
		Message:   "Payment reference is required.",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPlanError creates a non-retryable validation error.
func NewInvalidPlanError(planID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPlan,
		Message:   "Invalid subscription plan.",
		Details:   fmt.Sprintf("plan: %q", planID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewGatewayNotConfiguredError() *StandardError {
	return &StandardError{
		Code:      ErrCodeGatewayNotConfigured,
		Message:   "Payment verification is not configured.",
		Details:   "paystack secret key is empty",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewGatewayUnavailableError creates a retryable gateway error.
func NewGatewayUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGatewayUnavailable,
		Message:   "Failed to verify payment. Please try again.",
		Details:   errDetails(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewPaymentNotSuccessfulError(status string) *StandardError {
	return &StandardError{
		Code:      ErrCodePaymentNotSuccessful,
		Message:   "Payment was not successful.",
		Details:   fmt.Sprintf("gateway status: %q", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAmountMismatchError(expected, paid int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeAmountMismatch,
		Message:   "Payment amount mismatch. Please contact support.",
		Details:   fmt.Sprintf("expected: %d, paid: %d", expected, paid),
		Retryable: false,
		Metadata: map[string]interface{}{
			"expected": expected,
			"paid":     paid,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewReferenceAlreadyUsedError is returned when a reference was already
// applied to a different account.
func NewReferenceAlreadyUsedError(reference string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReferenceAlreadyUsed,
		Message:   "This payment reference has already been used.",
		Details:   fmt.Sprintf("reference: %s", reference),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubscriptionUpdateFailedError embeds the reference so support can reconcile.
func NewSubscriptionUpdateFailedError(reference string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubscriptionUpdateFailed,
		Message:   "Payment verified but failed to update subscription. Please contact support with reference: " + reference,
		Details:   errDetails(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"reference": reference},
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal error.",
		Details:   errDetails(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion to Callable
// ==========================

// CallableKindMapping maps internal error codes to the callable envelope status.
var CallableKindMapping = map[ErrorCode]Kind{
	ErrCodeUnauthenticated:          KindUnauthenticated,
	ErrCodeReferenceRequired:        KindInvalidArgument,
	ErrCodeInvalidPlan:              KindInvalidArgument,
	ErrCodeGatewayNotConfigured:     KindInternal,
	ErrCodeGatewayUnavailable:       KindInternal,
	ErrCodePaymentNotSuccessful:     KindAborted,
	ErrCodeAmountMismatch:           KindAborted,
	ErrCodeReferenceAlreadyUsed:     KindAborted,
	ErrCodeSubscriptionUpdateFailed: KindInternal,
	ErrCodeInternal:                 KindInternal,
}

// ConvertToCallableError maps a StandardError onto the callable envelope.
func ConvertToCallableError(stdErr *StandardError) *CallableError {
	kind, ok := CallableKindMapping[stdErr.Code]
	if !ok {
		kind = KindInternal
	}
	return &CallableError{Status: kind, Message: stdErr.Message}
}

// AsStandardError unwraps err to a StandardError, or wraps it as an internal one.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return errors.As(err, &stdErr) && stdErr.Code == code
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "UNAUTHENTICATED"):
		return "AUTH"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "REQUIRED"):
		return "VALIDATION"
	case strings.Contains(codeStr, "GATEWAY"):
		return "GATEWAY"
	case strings.Contains(codeStr, "PAYMENT") || strings.Contains(codeStr, "REFERENCE_ALREADY"):
		return "PAYMENT"
	case strings.Contains(codeStr, "SUBSCRIPTION"):
		return "PERSISTENCE"
	default:
		return "OTHER"
	}
}
