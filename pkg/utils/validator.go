package utils

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/turtacn/soapproxy/pkg/errors"
)

// Validator holds the singleton instance of the validator.
var defaultValidator *validator.Validate

func init() {
	defaultValidator = validator.New()
	// Report fields by their configuration key
	defaultValidator.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Register custom validation functions
	_ = defaultValidator.RegisterValidation("token_handler", validateTokenHandler)
}

// ValidateStruct validates a struct using the default validator.
// It returns ErrInvalidConfiguration with one detail per failing field.
func ValidateStruct(s interface{}) error {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ErrInvalidConfiguration.WithError(err)
	}
	appErr := errors.ErrInvalidConfiguration
	for _, fe := range validationErrors {
		appErr = appErr.WithDetail(fieldPath(fe), formatValidationError(fe))
	}
	return appErr
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// validateTokenHandler accepts the token handler names, in any case.
func validateTokenHandler(fl validator.FieldLevel) bool {
	switch strings.ToLower(fl.Field().String()) {
	case "saml11", "saml2", "jwt":
		return true
	}
	return false
}

// formatValidationError creates a user-friendly error message for a validation error.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "token_handler":
		return fmt.Sprintf("unknown token handler %q", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' tag", fe.Tag())
	}
}

//Personal.AI order the ending
