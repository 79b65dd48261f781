package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	// Custom validator instance
	validate = validator.New()

	// Asset ids look like "btc-bitcoin" or "usdt-tether".
	assetIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,127}$`)
)

// ValidationError represents a validation error with field and message
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

func init() {
	// JSON names read better in decode errors than Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	validate.RegisterValidation("assetid", validateAssetID)
	validate.RegisterValidation("rfc3339", validateRFC3339)
}

// validateAssetID validates the upstream asset id format
func validateAssetID(fl validator.FieldLevel) bool {
	id, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return assetIDPattern.MatchString(id)
}

// validateRFC3339 validates a timestamp string. Empty strings pass; pair with
// required when the field must be present.
func validateRFC3339(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if s == "" {
		return true
	}
	_, err := time.Parse(time.RFC3339, s)
	return err == nil
}

// IsAssetID reports whether id is a well-formed asset id.
func IsAssetID(id string) bool {
	return assetIDPattern.MatchString(id)
}

// ValidateStruct validates a struct using tags
func ValidateStruct(s interface{}) ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationErrors{{Field: "-", Message: err.Error()}}
	}

	var errs ValidationErrors
	for _, fe := range fieldErrs {
		field := fieldPath(fe.Namespace())
		errs = append(errs, ValidationError{
			Field:   field,
			Message: getErrorMessage(field, fe.Tag(), fe.Param()),
			Value:   fe.Value(),
		})
	}
	return errs
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// getErrorMessage returns a user-friendly error message
func getErrorMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "assetid":
		return fmt.Sprintf("%s must be a valid asset id (lowercase letters, digits and dashes)", field)
	case "rfc3339":
		return fmt.Sprintf("%s must be an RFC 3339 timestamp", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}

// SanitizeString removes control characters and trims whitespace.
func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 { // Keep tab, newline, carriage return
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}
