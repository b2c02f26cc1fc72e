// Package validation checks request payloads with validator/v10 and reports
// field errors under their JSON names.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arnavshah/quorum-scheduler-api/pkg/models"
)

// Error is a failed validation with one message per offending field
type Error struct {
	Message string            `json:"error"`
	Fields  map[string]string `json:"details"`
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + " " + e.Fields[k]
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// Validator wraps a configured validator instance
type Validator struct {
	v *validator.Validate
}

// New creates a validator that names fields by their json tag
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("minute", func(fl validator.FieldLevel) bool {
		return models.TimePoint(fl.Field().Float()).OnMinute()
	})

	return &Validator{v: v}
}

// Validate checks s and returns an *Error listing every invalid field
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fieldPath(fe)] = message(fe)
	}
	return &Error{Message: "validation failed", Fields: fields}
}

// fieldPath drops the top-level struct name from the namespace,
// e.g. GatheringInput.availability_sets[0].window.end
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "gtfield":
		return "must be greater than " + strings.ToLower(fe.Param())
	case "gtefield":
		return "must be greater than or equal to " + strings.ToLower(fe.Param())
	case "datetime":
		return "must be a date formatted " + fe.Param()
	case "minute":
		return "must fall on a whole minute"
	case "unique":
		return "must not contain duplicates"
	case "timezone":
		return "must be an IANA time zone"
	default:
		return "is invalid"
	}
}
