// Package util holds small helpers with no home in a domain package.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// ParseBoolEnv reads key as a boolean. It accepts true/1/yes/on and
// false/0/no/off, case-insensitive. Unset or unrecognized values fall back
// to defaultValue.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}
