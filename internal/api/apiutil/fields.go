package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, FieldError{Field: field, Reason: "is required"}
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, FieldError{Field: field, Reason: "must be greater than 0"}
	}
	return value, nil
}

// PathID parses the named path wildcard as a positive integer.
func PathID(r *http.Request, name string) (int64, error) {
	return ParsePositiveInt64Field(r.PathValue(name), name)
}

// QueryInt reads an optional positive integer query parameter. Missing
// values return fallback.
func QueryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, FieldError{Field: key, Reason: fmt.Sprintf("must be a positive integer, got %q", raw)}
	}
	return value, nil
}

// QueryIntMax is QueryInt with an inclusive upper bound.
func QueryIntMax(r *http.Request, key string, fallback, max int) (int, error) {
	value, err := QueryInt(r, key, fallback)
	if err != nil {
		return 0, err
	}
	if value > max {
		return 0, FieldError{Field: key, Reason: fmt.Sprintf("must be at most %d", max)}
	}
	return value, nil
}
