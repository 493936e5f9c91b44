// Package schema validates and normalizes candidate field sets against a
// per-resource descriptor. The same descriptor serves create and update; in
// update mode omitted fields are left untouched instead of being reported
// missing.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/threespace/site-backend/internal/apperr"
)

// Kind is the storage type of a field after coercion.
type Kind int

const (
	String Kind = iota
	Int
	Number
	Bool
	StringList
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "integer"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	case StringList:
		return "list of strings"
	}
	return "string"
}

// Mode selects create or partial-update semantics.
type Mode int

const (
	Create Mode = iota
	Update
)

// Field describes the constraints for one document attribute.
type Field struct {
	Name    string
	Aliases []string
	Kind    Kind

	Required        bool
	RequiredMessage string

	MaxLen        int
	MaxLenMessage string
	MinLen        int
	Min           *float64
	MinMessage    string

	Enum     []string
	EnumNoun string

	MinItems        int
	MinItemsMessage string

	Email      bool
	SplitComma bool

	// Default is stored on create when the field is absent.
	Default any
	// Transform rewrites string values (and list elements) before checks run.
	Transform func(string) string
}

// MinValue is a helper for Field.Min.
func MinValue(v float64) *float64 { return &v }

// Violation is a single rejected field.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every violation found in one candidate.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Reason)
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return apperr.ErrValidation }

// Invalid builds a single-violation error for checks made outside a schema.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Violations: []Violation{{Field: field, Reason: reason}}}
}

var (
	validate     = validator.New()
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// Schema is an ordered set of field rules.
type Schema struct {
	fields []Field
}

// New returns a schema; violations are reported in field order.
func New(fields ...Field) *Schema {
	return &Schema{fields: fields}
}

// Fields returns the field rules in declaration order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// Has reports whether name is a canonical field of the schema.
func (s *Schema) Has(name string) bool {
	for _, f := range s.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Validate checks input and returns the accepted values keyed by canonical
// field name. Unknown keys are dropped. The returned error, when non-nil, is
// a *ValidationError.
func (s *Schema) Validate(input map[string]any, mode Mode) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))
	var violations []Violation

	for _, f := range s.fields {
		raw, present := lookup(input, f)
		if present && isBlank(raw, f.Kind) {
			// explicit null or empty form value
			if mode == Update {
				if f.Required {
					violations = append(violations, Violation{Field: f.Name, Reason: f.requiredReason()})
				} else {
					out[f.Name] = cloneDefault(f.Default)
				}
				continue
			}
			present = false
		}

		if !present {
			if mode == Update {
				continue
			}
			if f.Required {
				violations = append(violations, Violation{Field: f.Name, Reason: f.requiredReason()})
				continue
			}
			if f.Default != nil {
				out[f.Name] = cloneDefault(f.Default)
			}
			continue
		}

		val, err := coerce(raw, f)
		if err != nil {
			violations = append(violations, Violation{Field: f.Name, Reason: err.Error()})
			continue
		}
		if reason := check(val, f); reason != "" {
			violations = append(violations, Violation{Field: f.Name, Reason: reason})
			continue
		}
		out[f.Name] = val
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return out, nil
}

func (f Field) requiredReason() string {
	if f.RequiredMessage != "" {
		return f.RequiredMessage
	}
	return f.Name + " is required"
}

func (f Field) maxLenReason() string {
	if f.MaxLenMessage != "" {
		return f.MaxLenMessage
	}
	return fmt.Sprintf("%s cannot exceed %d characters", f.Name, f.MaxLen)
}

func (f Field) minReason() string {
	if f.MinMessage != "" {
		return f.MinMessage
	}
	return fmt.Sprintf("%s must be at least %v", f.Name, *f.Min)
}

func lookup(input map[string]any, f Field) (any, bool) {
	if v, ok := input[f.Name]; ok {
		return v, true
	}
	for _, a := range f.Aliases {
		if v, ok := input[a]; ok {
			return v, true
		}
	}
	return nil, false
}

// isBlank treats JSON null and empty form strings on non-string kinds as absent.
func isBlank(v any, k Kind) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && k != String && k != StringList {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func cloneDefault(v any) any {
	if l, ok := v.([]string); ok {
		return append([]string{}, l...)
	}
	return v
}

func check(val any, f Field) string {
	switch v := val.(type) {
	case string:
		if f.Required && v == "" {
			return f.requiredReason()
		}
		if f.MaxLen > 0 && validate.Var(v, fmt.Sprintf("max=%d", f.MaxLen)) != nil {
			return f.maxLenReason()
		}
		if f.MinLen > 0 && validate.Var(v, fmt.Sprintf("min=%d", f.MinLen)) != nil {
			return fmt.Sprintf("%s must be at least %d characters", f.Name, f.MinLen)
		}
		if len(f.Enum) > 0 && !contains(f.Enum, v) {
			noun := f.EnumNoun
			if noun == "" {
				noun = f.Name
			}
			return fmt.Sprintf("%q is not a valid %s (allowed: %s)", v, noun, strings.Join(f.Enum, ", "))
		}
		if f.Email && v != "" && !emailPattern.MatchString(v) {
			return "Invalid email format"
		}
	case int64:
		if f.Min != nil && validate.Var(v, fmt.Sprintf("gte=%d", int64(*f.Min))) != nil {
			return f.minReason()
		}
	case float64:
		if f.Min != nil && validate.Var(v, fmt.Sprintf("gte=%v", *f.Min)) != nil {
			return f.minReason()
		}
	case []string:
		if f.MinItems > 0 && len(v) < f.MinItems {
			if f.MinItemsMessage != "" {
				return f.MinItemsMessage
			}
			return fmt.Sprintf("%s requires at least %d item(s)", f.Name, f.MinItems)
		}
		for _, item := range v {
			if f.MaxLen > 0 && validate.Var(item, fmt.Sprintf("max=%d", f.MaxLen)) != nil {
				return fmt.Sprintf("%s entries cannot exceed %d characters", f.Name, f.MaxLen)
			}
		}
	}
	return ""
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
