// Package validate checks form input before anything is written.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z\s\-']{2,50}$`)
	phoneRe = regexp.MustCompile(`^(\+234|0)[1-9]\d{9}$`)
)

const passwordSpecials = "@$!%*?&"

// Errors maps a field's JSON name to a user-facing message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// First returns one message, for toasts that show a single line.
func (e Errors) First() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return e[keys[0]]
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	must(val.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return IsPersonName(fl.Field().String())
	}))
	must(val.RegisterValidation("ngphone", func(fl validator.FieldLevel) bool {
		return IsNigerianPhone(fl.Field().String())
	}))
	must(val.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	}))
	must(val.RegisterValidation("accepted", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
	}))
	return val
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Struct validates s by its `validate` tags. It returns nil or Errors.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := Errors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Please enter a valid email address"
	case "personname":
		return "Please enter a valid name (2-50 letters)"
	case "ngphone":
		return "Please enter a valid Nigerian phone number"
	case "strongpassword":
		return "Password must be at least 8 characters with an uppercase letter, a number and a special character"
	case "accepted":
		return "Please accept the terms and conditions"
	case "eqfield":
		return "Passwords do not match"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s", fe.Param())
	case "gt", "gte":
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url", "http_url":
		return "Please enter a valid URL"
	}
	return "Invalid value"
}

func IsPersonName(s string) bool {
	return nameRe.MatchString(strings.TrimSpace(s))
}

// IsNigerianPhone accepts +234 or 0 followed by ten digits not starting with 0.
// Spaces and dashes are ignored.
func IsNigerianPhone(s string) bool {
	clean := strings.NewReplacer(" ", "", "-", "").Replace(s)
	return phoneRe.MatchString(clean)
}

// IsStrongPassword needs 8+ characters from letters, digits and @$!%*?&,
// including an uppercase letter, a digit and one of the specials.
func IsStrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var upper, digit, special bool
	for _, r := range s {
		switch {
		case r > unicode.MaxASCII:
			return false
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		case unicode.IsLower(r):
		default:
			return false
		}
	}
	return upper && digit && special
}

// PasswordStrength scores 0-4 for the strength meter.
func PasswordStrength(s string) int {
	score := 0
	if len(s) >= 8 {
		score++
	}
	var upper, lower, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if upper && lower {
		score++
	}
	if digit {
		score++
	}
	if special {
		score++
	}
	return score
}
