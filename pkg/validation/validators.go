package validation

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var otpRegex = regexp.MustCompile(`^[0-9]{6}$`)

// New returns a validator configured with the custom tags and form field names.
func New() *validator.Validate {
	v := validator.New()
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("otp_code", OTPCode)
	v.RegisterTagNameFunc(formFieldName)
}

// OTPCode accepts exactly six ASCII digits, which is what the provider's email_code strategy issues.
func OTPCode(fl validator.FieldLevel) bool {
	return otpRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

// formFieldName reports fields by their form tag so errors line up with HTML inputs.
func formFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
