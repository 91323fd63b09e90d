// internal/common/paystack/models.go
package paystack

// StatusSuccess is the only transaction status that grants a subscription.
const StatusSuccess = "success"

// EventChargeSuccess is the only webhook event that is acted on.
const EventChargeSuccess = "charge.success"

// Customer is the payer block of a transaction.
type Customer struct {
	Email string `json:"email"`
}

// Transaction is the data block of a verify response and of a charge webhook.
type Transaction struct {
	Status    string   `json:"status"`
	Amount    int64    `json:"amount"`
	Reference string   `json:"reference"`
	Currency  string   `json:"currency,omitempty"`
	PaidAt    string   `json:"paid_at,omitempty"`
	Customer  Customer `json:"customer"`
}

// Successful reports whether the gateway marked the transaction paid.
func (t *Transaction) Successful() bool {
	return t != nil && t.Status == StatusSuccess
}

type verifyResponse struct {
	Status  bool         `json:"status"`
	Message string       `json:"message"`
	Data    *Transaction `json:"data"`
}

// Event is a signed webhook delivery.
type Event struct {
	Event string      `json:"event"`
	Data  Transaction `json:"data"`
}
