package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation marks input that failed validation.
var ErrValidation = errors.New("validation failed")

var (
	validate      = validator.New(validator.WithRequiredStructEnabled())
	usernameChars = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

const maxUsernameLen = 64

func isUsernameRune(c rune) bool {
	return c < 0x80 && usernameChars.MatchString(string(c))
}

func init() { //nolint:gochecknoinits // custom validator registrations
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernameChars.MatchString(fl.Field().String())
	})
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		r, ok := sl.Current().Interface().(Registration)
		if !ok || strings.TrimSpace(r.Username) != "" {
			return
		}
		if u := r.DerivedUsername(); len(u) > maxUsernameLen || !usernameChars.MatchString(u) {
			sl.ReportError(r.Username, "username", "Username", "username", "")
		}
	}, Registration{})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks v against its struct tags. Failures wrap ErrValidation and
// name the first offending field by its JSON name.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return fmt.Errorf("%w: %s", ErrValidation, describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "username":
		return field + " may only contain letters, digits, '_', '.' and '-'"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
