package provider

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validation = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// ValidateSpec checks a meeting spec and reports the first offending field.
func ValidateSpec(spec MeetingSpec) error {
	return validateStruct(spec)
}

func ValidateParticipant(spec ParticipantSpec) error {
	return validateStruct(spec)
}

func validateStruct(in any) error {
	err := validation.Struct(in)
	if err == nil {
		return nil
	}

	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return &ValidationError{Field: "spec", Reason: err.Error()}
	}
	field := fields[0]
	return &ValidationError{Field: field.Field(), Reason: describe(field)}
}

func describe(field validator.FieldError) string {
	switch field.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", field.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", field.Param())
	case "max":
		return fmt.Sprintf("must be at most %s long", field.Param())
	default:
		return fmt.Sprintf("failed the %s check", field.Tag())
	}
}
