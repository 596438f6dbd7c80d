// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const (
	CodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	CodeInvalidType          = "INVALID_TYPE"
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

// Validate checks document against a JSON schema expressed as a Go value.
// The returned error is only set when the schema itself cannot be compiled.
func Validate(schema interface{}, document interface{}) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, toValidationError(desc))
	}
	sort.SliceStable(out.Errors, func(i, j int) bool {
		return out.Errors[i].Field < out.Errors[j].Field
	})
	return out, nil
}

func toValidationError(desc gojsonschema.ResultError) ValidationError {
	switch desc.Type() {
	case "required":
		field := desc.Field()
		if prop, ok := desc.Details()["property"].(string); ok {
			field = prop
		}
		return ValidationError{
			Field:   field,
			Message: "required field missing",
			Code:    CodeRequiredFieldMissing,
		}
	case "invalid_type":
		return ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    CodeInvalidType,
		}
	default:
		return ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		}
	}
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// FieldsWithCode lists the fields whose errors carry code.
func (vr *ValidationResult) FieldsWithCode(code string) []string {
	var fields []string
	for _, err := range vr.Errors {
		if err.Code == code {
			fields = append(fields, err.Field)
		}
	}
	return fields
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
