package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/LerianStudio/lib-swap/swap/ledger"
	"github.com/LerianStudio/lib-swap/swap/log"
)

// ErrUnavailable is returned when the breaker rejects a call without
// reaching the ledger.
var ErrUnavailable = errors.New("ledger unavailable")

// Config holds breaker and limiter settings for one ledger client.
type Config struct {
	Name                string        // Breaker name, used in logs
	RatePerSecond       int           // Calls per second; 0 disables limiting
	MaxRequests         uint32        // Max requests in half-open state
	Interval            time.Duration // Closed-state count reset period
	Timeout             time.Duration // Open-state duration before half-open
	ConsecutiveFailures uint32        // Consecutive failures to trip the breaker
	// IsSuccessful reports errors that must not count as failures, such as
	// business rejections from a healthy ledger. It is not called for nil
	// errors. Nil counts every error.
	IsSuccessful func(err error) bool
}

// DefaultConfig returns conservative settings for name.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		RatePerSecond:       100,
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// State is the breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

type breaker struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

func newBreaker(cfg Config, logger log.Logger) (*breaker, error) {
	if cfg.Name == "" {
		return nil, errors.New("guard: name is required")
	}

	if cfg.RatePerSecond < 0 {
		return nil, fmt.Errorf("guard: rate per second must not be negative, got %d", cfg.RatePerSecond)
	}

	if cfg.ConsecutiveFailures == 0 {
		return nil, errors.New("guard: consecutive failures must be positive")
	}

	logger = log.OrNop(logger)

	settings := gobreaker.Settings{
		Name:        "ledger-" + cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			logger.Log(context.Background(), log.LevelWarn, "ledger circuit breaker state changed",
				log.String("ledger", cfg.Name),
				log.String("from", convertState(from).String()),
				log.String("to", convertState(to).String()),
			)
		},
	}

	if isSuccessful := cfg.IsSuccessful; isSuccessful != nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || isSuccessful(err)
		}
	}

	limiter := ratelimit.NewUnlimited()
	if cfg.RatePerSecond > 0 {
		limiter = ratelimit.New(cfg.RatePerSecond)
	}

	return &breaker{
		name:    cfg.Name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		limiter: limiter,
	}, nil
}

func (b *breaker) do(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.limiter.Take()

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.cb.Execute(func() (any, error) {
		return nil, fn()
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		return fmt.Errorf("%w: %s circuit breaker open: %w", ErrUnavailable, b.name, err)
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %s recovering: %w", ErrUnavailable, b.name, err)
	}

	return err
}

func (b *breaker) state() State {
	return convertState(b.cb.State())
}

func convertState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}

func (s State) String() string {
	return string(s)
}

// Fungible decorates a fungible ledger with a breaker and a rate limiter.
type Fungible struct {
	next ledger.FungibleLedger
	b    *breaker
}

var _ ledger.FungibleLedger = (*Fungible)(nil)

// NewFungible wraps next.
func NewFungible(next ledger.FungibleLedger, cfg Config, logger log.Logger) (*Fungible, error) {
	if next == nil {
		return nil, errors.New("guard: nil fungible ledger")
	}

	b, err := newBreaker(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Fungible{next: next, b: b}, nil
}

// BalanceOf implements ledger.FungibleLedger.
func (f *Fungible) BalanceOf(ctx context.Context, ledgerID, address string) (uint64, error) {
	var balance uint64

	err := f.b.do(ctx, func() error {
		var err error

		balance, err = f.next.BalanceOf(ctx, ledgerID, address)

		return err
	})

	return balance, err
}

// Transfer implements ledger.FungibleLedger.
func (f *Fungible) Transfer(ctx context.Context, req ledger.FungibleTransfer) error {
	return f.b.do(ctx, func() error {
		return f.next.Transfer(ctx, req)
	})
}

// State reports the breaker state.
func (f *Fungible) State() State { return f.b.state() }

// NonFungible decorates a non-fungible ledger with a breaker and a rate limiter.
type NonFungible struct {
	next ledger.NonFungibleLedger
	b    *breaker
}

var _ ledger.NonFungibleLedger = (*NonFungible)(nil)

// NewNonFungible wraps next.
func NewNonFungible(next ledger.NonFungibleLedger, cfg Config, logger log.Logger) (*NonFungible, error) {
	if next == nil {
		return nil, errors.New("guard: nil non-fungible ledger")
	}

	b, err := newBreaker(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &NonFungible{next: next, b: b}, nil
}

// Transfer implements ledger.NonFungibleLedger.
func (n *NonFungible) Transfer(ctx context.Context, req ledger.UnitTransfer) error {
	return n.b.do(ctx, func() error {
		return n.next.Transfer(ctx, req)
	})
}

// State reports the breaker state.
func (n *NonFungible) State() State { return n.b.state() }
