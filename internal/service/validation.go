package service

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a form error caught before any external call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

const (
	msgAllFieldsRequired = "All fields are required"
	msgPasswordsMismatch = "Passwords do not match"
	msgPasswordTooShort  = "Password must be at least 6 characters"

	minPasswordLength = 6
	notBlankTag       = "notblank"
)

func newValidator() *validator.Validate {
	v := validator.New()

	// report json names so errors line up with the form fields
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && strings.TrimSpace(s) != ""
	})
	return v
}

// checkRequired maps any failed required-field rule to the single
// "All fields are required" message the forms show.
func checkRequired(v *validator.Validate, form any) error {
	if err := v.Struct(form); err != nil {
		return &ValidationError{Message: msgAllFieldsRequired}
	}
	return nil
}

func checkPasswords(password, confirm string) error {
	if password != confirm {
		return &ValidationError{Message: msgPasswordsMismatch}
	}
	if len(password) < minPasswordLength {
		return &ValidationError{Message: msgPasswordTooShort}
	}
	return nil
}
