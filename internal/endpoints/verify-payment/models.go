// internal/endpoints/verify-payment/models.go
package verifypayment

// Request is the callable envelope {"data": {...}}.
type Request struct {
	Data Input `json:"data"`
}

// Input is the caller's payload. Plan stays untyped so that any falsy value
// selects the default plan and any other non-string is rejected.
type Input struct {
	Reference string      `json:"reference"`
	Plan      interface{} `json:"plan,omitempty"`
}

type Output struct {
	Success bool   `json:"success"`
	Plan    string `json:"plan"`
	Message string `json:"message"`
}

// Response is the callable success envelope.
type Response struct {
	Result *Output `json:"result"`
}

const SuccessMessage = "Subscription activated successfully!"
