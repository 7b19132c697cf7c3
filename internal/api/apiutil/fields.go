package apiutil

import (
	"net/http"
	"strings"
	"time"
)

func RequireQueryParam(r *http.Request, key string) (string, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return "", FieldError{Field: key, Reason: "is required"}
	}
	return value, nil
}

// ParseDateField validates an ISO calendar date.
func ParseDateField(raw string, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	if _, err := time.Parse("2006-01-02", raw); err != nil {
		return "", FieldError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return raw, nil
}

// ParseTimeField validates an HH:MM time of day and normalizes it to a
// zero-padded form.
func ParseTimeField(raw string, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	parsed, err := time.Parse("15:04", raw)
	if err != nil {
		return "", FieldError{Field: field, Reason: "must be an HH:MM time"}
	}
	return parsed.Format("15:04"), nil
}

// RequireField validates presence of a free-text field.
func RequireField(raw string, field string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", FieldError{Field: field, Reason: "is required"}
	}
	return raw, nil
}
