package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		keys    []string
		want    []string
		wantErr error
	}{
		{name: "sorted and de-duplicated", keys: []string{"swap:usd:bob", "swap:usd:alice", "swap:usd:bob"}, want: []string{"swap:usd:alice", "swap:usd:bob"}},
		{name: "single", keys: []string{"k"}, want: []string{"k"}},
		{name: "empty list", keys: nil, wantErr: ErrEmptyKeys},
		{name: "blank key", keys: []string{"k", " "}, wantErr: ErrEmptyLockKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeKeys(tt.keys)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalReturnsFnErrorUnchanged(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := NewLocal().WithLock(context.Background(), []string{"a"}, func(context.Context) error {
		return boom
	})

	assert.Same(t, boom, err)
}

func TestLocalValidation(t *testing.T) {
	t.Parallel()

	l := NewLocal()

	require.ErrorIs(t, l.WithLock(context.Background(), []string{"a"}, nil), ErrNilLockFn)
	require.ErrorIs(t, l.WithLock(context.Background(), nil, func(context.Context) error { return nil }), ErrEmptyKeys)

	var zero *Local
	require.ErrorIs(t, zero.WithLock(context.Background(), []string{"a"}, func(context.Context) error { return nil }), ErrLockNotInitialized)
}

func TestLocalSerializesOverlappingKeys(t *testing.T) {
	t.Parallel()

	l := NewLocal()

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)

	keySets := [][]string{
		{"swap:usd:alice", "swap:usd:bob"},
		{"swap:usd:bob", "swap:usd:alice"},
		{"swap:usd:bob", "swap:usd:carol"},
	}

	for i := range 30 {
		wg.Add(1)

		go func(keys []string) {
			defer wg.Done()

			err := l.WithLock(context.Background(), keys, func(context.Context) error {
				n := inside.Add(1)
				defer inside.Add(-1)

				for {
					seen := maxSeen.Load()
					if n <= seen || maxSeen.CompareAndSwap(seen, n) {
						break
					}
				}

				time.Sleep(time.Millisecond)

				return nil
			})
			assert.NoError(t, err)
		}(keySets[i%len(keySets)])
	}

	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load(), "every key set shares swap:usd:bob")
	assert.Zero(t, l.size(), "slots are released")
}

func TestLocalHonoursContextWhileWaiting(t *testing.T) {
	t.Parallel()

	l := NewLocal()
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), []string{"k"}, func(context.Context) error {
			close(held)
			<-release

			return nil
		})
	}()

	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	called := false
	err := l.WithLock(ctx, []string{"k"}, func(context.Context) error {
		called = true
		return nil
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)

	close(release)

	require.Eventually(t, func() bool { return l.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLocalReleasesEarlierKeysWhenLaterAcquireFails(t *testing.T) {
	t.Parallel()

	l := NewLocal()
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), []string{"b"}, func(context.Context) error {
			close(held)
			<-release

			return nil
		})
	}()

	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.WithLock(ctx, []string{"a", "b"}, func(context.Context) error { return nil })
	require.Error(t, err)

	// "a" must be free again
	require.NoError(t, l.WithLock(context.Background(), []string{"a"}, func(context.Context) error { return nil }))

	close(release)
}
