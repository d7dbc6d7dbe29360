package mock

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation failure with context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

var (
	structValidator     *validator.Validate
	structValidatorOnce sync.Once
)

// getValidator returns the shared struct validator. Field names in errors
// use the json tag so messages match the configuration documents.
func getValidator() *validator.Validate {
	structValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		structValidator = v
	})
	return structValidator
}

// Validate checks field-level constraints of the endpoint: method, path
// prefix, status range, delay range [0, MaxDelayMs], failRate in [0,1], and
// rule shapes. Path template structure and rule operands (regular
// expressions, expressions) are checked when the endpoint is compiled.
func (e *Endpoint) Validate() error {
	if e == nil {
		return &ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}

	if err := getValidator().Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fromFieldError(verrs[0])
		}
		return &ValidationError{Field: "endpoint", Message: err.Error()}
	}

	for i := range e.Variants {
		if err := e.Variants[i].validateRules(fmt.Sprintf("variants[%d]", i)); err != nil {
			return err
		}
	}

	return nil
}

func (v *Variant) validateRules(prefix string) error {
	for j, r := range v.Rules {
		field := fmt.Sprintf("%s.rules[%d]", prefix, j)
		if r.Operator.IsExistence() && r.Value != "" {
			return &ValidationError{Field: field + ".value", Message: fmt.Sprintf("operator %s takes no value", r.Operator)}
		}
		if r.Operator == OpExpression && strings.TrimSpace(r.Value) == "" {
			return &ValidationError{Field: field + ".value", Message: "expression is required"}
		}
	}
	return nil
}

// DefaultCount returns how many variants are marked default. More than one
// is a data-integrity anomaly that resolution tolerates.
func (e *Endpoint) DefaultCount() int {
	n := 0
	for _, v := range e.Variants {
		if v.IsDefault {
			n++
		}
	}
	return n
}

func fromFieldError(fe validator.FieldError) *ValidationError {
	field := strings.TrimPrefix(fe.Namespace(), "Endpoint.")
	var msg string
	switch fe.Tag() {
	case "required":
		msg = "is required"
	case "oneof":
		msg = fmt.Sprintf("must be one of [%s], got %v", fe.Param(), fe.Value())
	case "min":
		msg = fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "max":
		msg = fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	case "startswith":
		msg = fmt.Sprintf("must start with %q", fe.Param())
	default:
		msg = fmt.Sprintf("failed %q constraint", fe.Tag())
	}
	return &ValidationError{Field: field, Message: msg}
}
