// Package forms turns submitted field values into validated input and
// field-level error messages for re-rendering.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a form field name to its messages. The empty key holds
// errors that are not tied to one field.
type Errors map[string][]string

func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func (e Errors) Get(field string) []string {
	return e[field]
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

func (e Errors) Any() bool {
	return len(e) > 0
}

var (
	slugRe     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
	usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)
)

// reservedUsernames collide with top-level routes.
var reservedUsernames = map[string]struct{}{
	"new": {}, "follow": {}, "group": {}, "auth": {}, "admin": {}, "media": {}, "health": {}, "static": {},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	mustRegister(v, "slug", func(fl validator.FieldLevel) bool {
		return slugRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return ValidUsername(fl.Field().String())
	})
	return v
}

// ValidUsername reports whether name uses only the allowed characters and
// does not shadow a top-level route.
func ValidUsername(name string) bool {
	if _, reserved := reservedUsernames[strings.ToLower(name)]; reserved {
		return false
	}
	return usernameRe.MatchString(name)
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("forms: register %s: %v", tag, err))
	}
}

// Validate checks a request struct against its validate tags.
func Validate(req any) Errors {
	errs := Errors{}
	err := validate.Struct(req)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("", err.Error())
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "number":
		return "Select a valid choice. That choice is not one of the available choices."
	case "slug":
		return "Enter a valid slug consisting of letters, numbers, underscores or hyphens."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters and must not be a reserved word."
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}
