package validation

import (
	"encoding/json"
	"fmt"
	"strings"

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

// Fields flattens the result into field -> message, keeping the first message per field.
func (r *ValidationResult) Fields() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

// ValidateDocument checks data against a raw JSON schema. An empty schema accepts anything.
func ValidateDocument(schema json.RawMessage, data map[string]interface{}) (*ValidationResult, error) {
	if len(strings.TrimSpace(string(schema))) == 0 || string(schema) == "null" {
		return &ValidationResult{Valid: true}, nil
	}

	if data == nil {
		data = map[string]interface{}{}
	}

	schemaLoader := gojsonschema.NewBytesLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldName(desc),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// "required" errors report the parent as the field; use the missing property instead.
func fieldName(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			return prop
		}
	}
	field := desc.Field()
	if field == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
		return "application_data"
	}
	return field
}

// ValidateExtension reports whether name ends with one of the allowed extensions.
func ValidateExtension(name string, allowed []string) (string, bool) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return "", false
	}
	ext := strings.ToLower(name[idx+1:])
	for _, a := range allowed {
		if strings.EqualFold(a, ext) {
			return ext, true
		}
	}
	return ext, false
}
