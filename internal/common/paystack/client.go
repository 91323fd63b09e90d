// internal/common/paystack/client.go
package paystack

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	httpclient "studybuddy-payments/internal/common/http"
	"studybuddy-payments/internal/common/metrics"
)

const DefaultBaseURL = "https://api.paystack.co"

var (
	// ErrGatewayUnavailable covers transport failures, non-2xx answers and undecodable bodies.
	ErrGatewayUnavailable = errors.New("GATEWAY_UNAVAILABLE")
	// ErrVerificationRejected is a well-formed answer with status false.
	ErrVerificationRejected = errors.New("VERIFICATION_REJECTED")
)

// Verifier looks up the gateway's view of a transaction.
type Verifier interface {
	VerifyTransaction(ctx context.Context, reference string) (*Transaction, error)
}

// Client calls the Paystack REST API. It never retries.
type Client struct {
	secretKey  string
	baseURL    string
	httpClient *httpclient.Client
}

func NewClient(secretKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpclient.NewClient(timeout),
	}
}

// VerifyTransaction fetches GET /transaction/verify/{reference}.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	headers := map[string]string{"Authorization": "Bearer " + c.secretKey}

	start := time.Now()
	var resp verifyResponse
	err := c.httpClient.GetJSON(ctx, endpoint, headers, &resp)
	if err != nil {
		metrics.GatewayRequestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	metrics.GatewayRequestDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	if !resp.Status {
		return nil, fmt.Errorf("%w: %s", ErrVerificationRejected, resp.Message)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: response carried no data", ErrGatewayUnavailable)
	}
	return resp.Data, nil
}
