package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps form field names to user-facing labels
var FieldLabels = map[string]string{
	"email":           "Email",
	"password":        "Password",
	"confirmPassword": "Confirm password",
	"code":            "Verification code",
}

// fieldMessages overrides the generic text for a field/tag pair.
var fieldMessages = map[string]map[string]string{
	"email": {
		"required": "You must provide an email address",
		"email":    "Please enter a valid email address",
	},
	"password": {
		"required": "Password should be at least 8 characters",
		"min":      "Password should be at least 8 characters",
	},
	"confirmPassword": {
		"required": "Password should be at least 8 characters",
		"min":      "Password should be at least 8 characters",
		"eqfield":  "Passwords do not match",
	},
	"code": {
		"required": "Enter the code we sent to your email",
		"otp_code": "The verification code is 6 digits",
	},
}

// FieldErrors returns the first message per form field, for inline form errors.
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return out
	}
	for _, e := range validationErrors {
		if _, seen := out[e.Field()]; seen {
			continue
		}
		out[e.Field()] = formatSingleError(e)
	}
	return out
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// formatSingleError formats a single validation error to a user-friendly message
func formatSingleError(e validator.FieldError) string {
	fieldName := e.Field()
	if byTag, ok := fieldMessages[fieldName]; ok {
		if msg, ok := byTag[e.Tag()]; ok {
			return msg
		}
	}

	label := getFieldLabel(fieldName)
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", label)
	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s should be at least %s characters", label, param)
		}
		return fmt.Sprintf("%s should be at least %s", label, param)
	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s should be at most %s characters", label, param)
		}
		return fmt.Sprintf("%s should be at most %s", label, param)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", label, param)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", label)
	case "eqfield":
		return fmt.Sprintf("%s must match %s", label, getFieldLabel(param))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.Join(strings.Fields(param), ", "))
	default:
		return fmt.Sprintf("%s is invalid (%s)", label, e.Tag())
	}
}

// getFieldLabel returns the user-friendly label for a field
func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
