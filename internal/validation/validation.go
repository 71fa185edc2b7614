package validation

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// validate checks request bodies. Initialized in init() with custom rules.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// Struct validates v against its `validate` tags.
func Struct(v interface{}) error {
	return validate.Struct(v)
}

// Describe turns a validation error into a short client-facing message.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func MaxTitleLength() int {
	return envLimit("MAX_TITLE_LENGTH", 200)
}

func MaxBodyLength() int {
	return envLimit("MAX_BODY_LENGTH", 5000)
}

func envLimit(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}

// TrimAndLimit trims s and cuts it to at most max runes.
func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

// WithinLimit reports whether s has at most max runes.
func WithinLimit(s string, max int) bool {
	return utf8.RuneCountInString(s) <= max
}

// NormalizeSearchTerm trims and lower-cases a feed filter term.
func NormalizeSearchTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
