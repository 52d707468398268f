package department

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator normalizes a raw partial payload of one variant. Normalize merges
// raw over existing (top-level fields only; arrays are replaced, never
// concatenated), applies variant defaults and enforces the variant's
// cross-field rules.
type Validator interface {
	Variant() Variant
	Normalize(raw json.RawMessage, existing Data) (Data, []Warning, error)
}

var fieldRules = newFieldRules()

func newFieldRules() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// mergeInto decodes existing and then raw into dst. A JSON null in raw clears
// the field.
func mergeInto(dst Data, raw json.RawMessage, existing Data) error {
	fields := map[string]json.RawMessage{}
	if existing != nil {
		b, err := json.Marshal(existing)
		if err != nil {
			return fmt.Errorf("encode existing payload: %w", err)
		}
		if err := json.Unmarshal(b, &fields); err != nil {
			return fmt.Errorf("decode existing payload: %w", err)
		}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && string(raw) != "null" {
		var partial map[string]json.RawMessage
		if err := json.Unmarshal(raw, &partial); err != nil {
			return &InvalidPayloadError{Field: "department_specific_data", Reason: "must be a JSON object"}
		}
		known := knownFields(dst)
		keys := make([]string, 0, len(partial))
		for k := range partial {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !known[k] {
				return &InvalidPayloadError{Field: k, Reason: fmt.Sprintf("unknown field for %s payload", dst.Variant())}
			}
			if string(bytes.TrimSpace(partial[k])) == "null" {
				delete(fields, k)
				continue
			}
			fields[k] = partial[k]
		}
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode merged payload: %w", err)
	}
	if err := json.Unmarshal(merged, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &InvalidPayloadError{Field: typeErr.Field, Reason: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value)}
		}
		return &InvalidPayloadError{Field: "department_specific_data", Reason: err.Error()}
	}
	return nil
}

func knownFields(d Data) map[string]bool {
	t := reflect.TypeOf(d)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	known := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if name := jsonName(t.Field(i)); name != "" {
			known[name] = true
		}
	}
	return known
}

// checkFields runs the struct tag rules and reports the first violation.
func checkFields(d Data) error {
	err := fieldRules.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &InvalidPayloadError{Field: "department_specific_data", Reason: err.Error()}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return &InvalidPayloadError{Field: field, Reason: describeRule(fe)}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must be a date formatted as YYYY-MM-DD"
	}
	return "failed rule " + fe.Tag()
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func intRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &InvalidPayloadError{Field: field, Reason: fmt.Sprintf("must be between %d and %d, got %d", lo, hi, v)}
	}
	return nil
}
