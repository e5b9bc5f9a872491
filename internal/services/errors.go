package services

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is not active")
)

// ValidationError reports per-field problems. Nothing was written.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	if !slices.Contains(e.Fields[field], msg) {
		e.Fields[field] = append(e.Fields[field], msg)
	}
}

// Err returns e when any field failed, nil otherwise.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field, msg string) error {
	e := &ValidationError{}
	e.Add(field, msg)
	return e
}

const (
	msgBlank        = "This field may not be blank."
	msgEmail        = "Enter a valid email address."
	msgDoesNotExist = "Object does not exist."
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// parseClock accepts "HH:MM" and "HH:MM:SS".
func parseClock(s string) (time.Time, error) {
	if t, err := time.Parse("15:04", s); err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", s)
}

// validateStruct runs the struct tags and converts failures to a ValidationError.
func validateStruct(v any) *ValidationError {
	out := &ValidationError{}
	err := validate.Struct(v)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.Add("non_field_errors", err.Error())
		return out
	}
	for _, fe := range verrs {
		out.Add(fieldPath(fe), message(fe))
	}
	return out
}

// fieldPath drops the struct name and embedded struct names (the only
// segments without a lowercase json name) so nested fields read
// "selection_criteria[0].text_en".
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	out := parts[:0]
	for i, p := range parts {
		if i == 0 || p == "" || unicode.IsUpper(rune(p[0])) {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return fe.Field()
	}
	return strings.Join(out, ".")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgBlank
	case "email":
		return msgEmail
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "url", "http_url":
		return "Enter a valid URL."
	case "latitude", "longitude":
		return "Enter a valid coordinate."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
