// internal/endpoints/paystack-webhook/models.go
package paystackwebhook

import (
	"studybuddy-payments/internal/audit"
)

// Plain-text bodies returned to the gateway.
const (
	BodyOK               = "OK"
	BodyMethodNotAllowed = "Method Not Allowed"
	BodyMisconfigured    = "Server misconfiguration."
	BodyInvalidSignature = "Invalid signature."
)

// Output describes what was done with an authenticated delivery. The HTTP
// answer is 200 "OK" whatever it says.
type Output struct {
	Outcome audit.Outcome `json:"outcome"`
	UserID  string        `json:"userId,omitempty"`
	Plan    string        `json:"plan,omitempty"`
}
