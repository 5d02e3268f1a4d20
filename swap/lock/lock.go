package lock

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
)

var (
	// ErrEmptyKeys is returned when WithLock is called without keys.
	ErrEmptyKeys = errors.New("at least one lock key is required")
	// ErrEmptyLockKey is returned when one of the keys is blank.
	ErrEmptyLockKey = errors.New("lock key cannot be empty")
	// ErrNilLockFn is returned when a nil function is passed to WithLock.
	ErrNilLockFn = errors.New("lock function is nil")
	// ErrLockNotInitialized is returned by a zero-value or nil locker.
	ErrLockNotInitialized = errors.New("locker is not initialized")
)

// Locker runs fn while holding every key. Keys are de-duplicated and
// acquired in sorted order. fn's error is returned unchanged.
type Locker interface {
	WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// normalizeKeys returns the sorted, de-duplicated key set.
func normalizeKeys(keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyKeys
	}

	out := make([]string, 0, len(keys))

	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return nil, ErrEmptyLockKey
		}

		out = append(out, k)
	}

	slices.Sort(out)

	return slices.Compact(out), nil
}

func safeKeyForLogs(key string) string {
	const maxKeyLogLength = 128

	safe := strconv.QuoteToASCII(key)
	if len(safe) <= maxKeyLogLength {
		return safe
	}

	return safe[:maxKeyLogLength] + "...(truncated)"
}
