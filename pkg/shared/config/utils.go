package config

import (
	"reflect"
	"strings"
)

// SetThen selects the first value if set, otherwise the default.
func SetThen[T any](value T, defaultValue T) T {
	if reflect.ValueOf(value).IsZero() {
		return defaultValue
	}
	return value
}

// IsValidSeverity reports whether s names one of the finding severities.
// An empty string is accepted where it means "keep the built-in value".
func IsValidSeverity(s string) bool {
	switch strings.ToUpper(s) {
	case "", "HIGH", "MED", "LOW":
		return true
	}
	return false
}
