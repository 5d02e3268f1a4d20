package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/LerianStudio/lib-swap/swap/log"
)

const maxLockTries = 1000

var (
	// ErrLockExpiryInvalid is returned when lock expiry is not positive.
	ErrLockExpiryInvalid = errors.New("lock expiry must be greater than 0")
	// ErrLockTriesInvalid is returned when lock tries is less than 1.
	ErrLockTriesInvalid = errors.New("lock tries must be at least 1")
	// ErrLockTriesExceeded is returned when lock tries exceeds the maximum.
	ErrLockTriesExceeded = errors.New("lock tries exceeds maximum")
	// ErrLockRetryDelayNegative is returned when retry delay is negative.
	ErrLockRetryDelayNegative = errors.New("lock retry delay cannot be negative")
	// ErrLockDriftFactorInvalid is returned when drift factor is outside [0, 1).
	ErrLockDriftFactorInvalid = errors.New("lock drift factor must be between 0 (inclusive) and 1 (exclusive)")
	// ErrNilRedisClient is returned by NewRedis without a client.
	ErrNilRedisClient = errors.New("redis client is nil")
)

// LockOptions configures RedLock mutexes.
type LockOptions struct {
	// Expiry bounds how long a crashed holder can block others.
	Expiry time.Duration
	// Tries is the number of acquisition attempts per key (max 1000).
	Tries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// DriftFactor accounts for clock drift between Redis nodes.
	DriftFactor float64
}

// DefaultLockOptions suits swaps that finish within a few seconds.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Expiry:      10 * time.Second,
		Tries:       32,
		RetryDelay:  100 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// Validate checks the options against the RedLock constraints.
func (opts LockOptions) Validate() error {
	if opts.Expiry <= 0 {
		return ErrLockExpiryInvalid
	}

	if opts.Tries < 1 {
		return ErrLockTriesInvalid
	}

	if opts.Tries > maxLockTries {
		return ErrLockTriesExceeded
	}

	if opts.RetryDelay < 0 {
		return ErrLockRetryDelayNegative
	}

	if opts.DriftFactor < 0 || opts.DriftFactor >= 1 {
		return ErrLockDriftFactorInvalid
	}

	return nil
}

// Redis serializes holders across processes with one redsync mutex per key.
type Redis struct {
	redsync *redsync.Redsync
	opts    LockOptions
	logger  log.Logger
}

var _ Locker = (*Redis)(nil)

// NewRedis builds a locker on client.
func NewRedis(client redis.UniversalClient, opts LockOptions, logger log.Logger) (*Redis, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return &Redis{
		redsync: redsync.New(goredis.NewPool(client)),
		opts:    opts,
		logger:  log.OrNop(logger),
	}, nil
}

func (r *Redis) WithLock(ctx context.Context, keys []string, fn func(context.Context) error) error {
	if r == nil || r.redsync == nil {
		return ErrLockNotInitialized
	}

	if fn == nil {
		return ErrNilLockFn
	}

	sorted, err := normalizeKeys(keys)
	if err != nil {
		return err
	}

	held := make([]*redsync.Mutex, 0, len(sorted))

	defer func() {
		// release even when the caller's context is already cancelled
		unlockCtx := context.WithoutCancel(ctx)

		for i := len(held) - 1; i >= 0; i-- {
			mutex := held[i]

			if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
				r.logger.Log(ctx, log.LevelError, "failed to release lock",
					log.String("lock_key", safeKeyForLogs(mutex.Name())),
					log.Bool("unlock_ok", ok),
					log.Err(err),
				)
			}
		}
	}()

	for _, key := range sorted {
		mutex := r.redsync.NewMutex(
			key,
			redsync.WithExpiry(r.opts.Expiry),
			redsync.WithTries(r.opts.Tries),
			redsync.WithRetryDelay(r.opts.RetryDelay),
			redsync.WithDriftFactor(r.opts.DriftFactor),
		)

		if err := mutex.LockContext(ctx); err != nil {
			r.logger.Log(ctx, log.LevelWarn, "failed to acquire lock",
				log.String("lock_key", safeKeyForLogs(key)), log.Err(err))

			return fmt.Errorf("failed to acquire lock %s: %w", safeKeyForLogs(key), err)
		}

		held = append(held, mutex)
	}

	r.logger.Log(ctx, log.LevelDebug, "locks acquired", log.Int("keys", len(held)))

	return fn(ctx)
}
