// internal/common/paystack/signature_test.go
package paystack

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSignature_KnownVector(t *testing.T) {
	// HMAC-SHA512 of the empty message under an empty key.
	want := "b936cee86c9f87aa5d3c6f2e84cb5a4239a5fe50480a6ec66b70ab5b1f4ac6730c6c515421b327ec1d69402e53dfb49ad7381eb067b338fd7b0cb22247225d47"
	assert.Equal(t, want, ComputeSignature("", nil))
}

func TestComputeSignature_Shape(t *testing.T) {
	sig := ComputeSignature("sk_test_secret", []byte(`{"event":"charge.success"}`))
	assert.Len(t, sig, 128)
	assert.Equal(t, strings.ToLower(sig), sig)
}

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"ref_1"}}`)
	valid := ComputeSignature(secret, body)

	tests := []struct {
		name   string
		secret string
		body   []byte
		header string
		want   bool
	}{
		{name: "matching signature", secret: secret, body: body, header: valid, want: true},
		{name: "empty header", secret: secret, body: body, header: "", want: false},
		{name: "empty secret", secret: "", body: body, header: ComputeSignature("", body), want: false},
		{name: "wrong secret", secret: "other", body: body, header: valid, want: false},
		{name: "body changed", secret: secret, body: append([]byte{' '}, body...), header: valid, want: false},
		{name: "uppercase hex", secret: secret, body: body, header: strings.ToUpper(valid), want: false},
		{name: "truncated", secret: secret, body: body, header: valid[:64], want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.secret, tt.body, tt.header))
		})
	}
}

func TestVerifySignature_SingleByteMutation(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"amount":150000}}`)
	header := ComputeSignature(secret, body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		assert.False(t, VerifySignature(secret, mutated, header), "mutation at byte %d verified", i)
	}
}
