// internal/common/validation/schema.go
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

func NewSchema(source string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

func MustSchema(source string) *Schema {
	s, err := NewSchema(source)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateBytes checks a raw JSON document. Undecodable input is reported as
// a single INVALID_JSON error.
func (s *Schema) ValidateBytes(raw []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_JSON",
			}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out
}

// CallableVerifyRequest describes {"data": {"reference": "...", "plan": "..."}}.
// plan is left untyped: non-string values are rejected later as unknown plans.
const CallableVerifyRequest = `{
  "type": "object",
  "required": ["data"],
  "properties": {
    "data": {
      "type": "object",
      "required": ["reference"],
      "properties": {
        "reference": {"type": "string", "minLength": 1}
      }
    }
  }
}`

// ChargeEvent describes the part of a gateway webhook that is acted on.
// Fields are optional: missing ones lead to an acknowledged no-op.
const ChargeEvent = `{
  "type": "object",
  "required": ["event"],
  "properties": {
    "event": {"type": "string"},
    "data": {
      "type": "object",
      "properties": {
        "reference": {"type": "string"},
        "amount": {"type": "integer"},
        "status": {"type": "string"},
        "customer": {
          "type": "object",
          "properties": {
            "email": {"type": "string"}
          }
        }
      }
    }
  }
}`
