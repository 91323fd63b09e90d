// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema_Invalid(t *testing.T) {
	_, err := NewSchema(`{"type": 5}`)
	assert.Error(t, err)

	assert.Panics(t, func() { MustSchema(`not json`) })
}

func TestCallableVerifyRequest(t *testing.T) {
	schema := MustSchema(CallableVerifyRequest)

	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{name: "reference only", body: `{"data":{"reference":"txn_abc123"}}`, valid: true},
		{name: "reference and plan", body: `{"data":{"reference":"txn_abc123","plan":"pro"}}`, valid: true},
		{name: "numeric plan passes schema", body: `{"data":{"reference":"r","plan":5}}`, valid: true},
		{name: "missing reference", body: `{"data":{"plan":"pro"}}`},
		{name: "empty reference", body: `{"data":{"reference":""}}`},
		{name: "numeric reference", body: `{"data":{"reference":123}}`},
		{name: "null reference", body: `{"data":{"reference":null}}`},
		{name: "missing data", body: `{}`},
		{name: "data not object", body: `{"data":"txn"}`},
		{name: "not json", body: `{"data":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := schema.ValidateBytes([]byte(tt.body))
			require.NotNil(t, res)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.NotEmpty(t, res.Errors)
			}
		})
	}
}

func TestChargeEvent(t *testing.T) {
	schema := MustSchema(ChargeEvent)

	assert.True(t, schema.ValidateBytes([]byte(`{"event":"charge.success","data":{"reference":"r","amount":150000,"customer":{"email":"a@x.com"}}}`)).Valid)
	assert.True(t, schema.ValidateBytes([]byte(`{"event":"transfer.success"}`)).Valid)
	assert.False(t, schema.ValidateBytes([]byte(`{"event":"charge.success","data":{"amount":"150000"}}`)).Valid)
	assert.False(t, schema.ValidateBytes([]byte(`{"data":{}}`)).Valid)

	res := schema.ValidateBytes([]byte(`garbage`))
	assert.False(t, res.Valid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "INVALID_JSON", res.Errors[0].Code)
}
