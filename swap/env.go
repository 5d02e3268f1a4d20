package swap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetenvOrDefault returns the trimmed value of key, or defaultValue when the
// variable is unset or blank.
func GetenvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	return value
}

// GetenvUintOrDefault parses key as an unsigned integer.
func GetenvUintOrDefault(key string, defaultValue uint64) (uint64, error) {
	raw := GetenvOrDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return value, nil
}

// GetenvIntOrDefault parses key as a signed integer.
func GetenvIntOrDefault(key string, defaultValue int) (int, error) {
	raw := GetenvOrDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return value, nil
}

// GetenvDurationOrDefault parses key with time.ParseDuration.
func GetenvDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := GetenvOrDefault(key, "")
	if raw == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}

	return value, nil
}
