package common

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator collects field errors; nil-valued optional fields are skipped by every rule except Required.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}
	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Error returns a VALIDATION_FAILURE AppError, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError(CodeValidation, v.ErrorMessage(), ErrValidation)
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

func isNil(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case *string:
		return v == nil
	case *decimal.Decimal:
		return v == nil
	}
	return false
}

func asString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v != nil {
			return *v, true
		}
	}
	return "", false
}

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if isNil(value) {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := asString(value); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

func MaxLength(max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}

var currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)

// CurrencyCode checks ISO 4217 shape and, when known is non-empty, membership.
func CurrencyCode(known map[string]struct{}) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		if !currencyRegex.MatchString(str) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: "must be 3 uppercase letters (ISO 4217)",
			}
		}
		if len(known) > 0 {
			if _, ok := known[str]; !ok {
				return &ValidationError{Field: fieldName, Value: value, Message: "is not a recognized currency"}
			}
		}
		return nil
	}
}

// NonNegative rejects decimals below zero.
func NonNegative(fieldName string, value interface{}) *ValidationError {
	d, ok := value.(*decimal.Decimal)
	if !ok || d == nil {
		return nil
	}
	if d.IsNegative() {
		return &ValidationError{Field: fieldName, Value: d.String(), Message: "must not be negative"}
	}
	return nil
}

// Check adapts a predicate over strings into a rule.
func Check(message string, ok func(string) bool) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, present := asString(value)
		if !present {
			return nil
		}
		if !ok(str) {
			return &ValidationError{Field: fieldName, Value: value, Message: message}
		}
		return nil
	}
}
