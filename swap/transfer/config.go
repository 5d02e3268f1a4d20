package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-swap/swap"
	"github.com/LerianStudio/lib-swap/swap/fee"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvFeeRatePercent        = "SWAP_FEE_RATE_PERCENT"
	EnvCompensationAttempts  = "SWAP_COMPENSATION_ATTEMPTS"
	EnvCompensationBaseDelay = "SWAP_COMPENSATION_BASE_DELAY"
	EnvRecoveryGrace         = "SWAP_RECOVERY_GRACE"
)

const (
	DefaultFeeRate               fee.Rate = 5
	DefaultCompensationAttempts           = 3
	DefaultCompensationBaseDelay          = 50 * time.Millisecond
	DefaultRecoveryGrace                  = time.Minute
)

var (
	ErrInvalidCompensationAttempts = errors.New("compensation attempts must be at least 1")
	ErrNegativeDelay               = errors.New("delay cannot be negative")
)

// Config holds the orchestrator settings.
//
// Validate does not check FeeRate. Execute reports an out-of-range rate as
// ErrInvalidArgument before any ledger call.
type Config struct {
	// FeeRate is the percentage of the gross balance routed to the fee sink.
	FeeRate fee.Rate
	// CompensationAttempts bounds retries of each compensating transfer.
	CompensationAttempts int
	// CompensationBaseDelay seeds the exponential backoff between retries.
	CompensationBaseDelay time.Duration
	// RecoveryGrace is how long a PENDING journal entry must be idle before
	// Recover treats it as abandoned.
	RecoveryGrace time.Duration
}

// DefaultConfig returns the library defaults.
func DefaultConfig() Config {
	return Config{
		FeeRate:               DefaultFeeRate,
		CompensationAttempts:  DefaultCompensationAttempts,
		CompensationBaseDelay: DefaultCompensationBaseDelay,
		RecoveryGrace:         DefaultRecoveryGrace,
	}
}

// ConfigFromEnv overlays environment variables on DefaultConfig.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	rate, err := swap.GetenvUintOrDefault(EnvFeeRatePercent, uint64(cfg.FeeRate))
	if err != nil {
		return Config{}, err
	}

	cfg.FeeRate = fee.Rate(rate)

	if cfg.CompensationAttempts, err = swap.GetenvIntOrDefault(EnvCompensationAttempts, cfg.CompensationAttempts); err != nil {
		return Config{}, err
	}

	if cfg.CompensationBaseDelay, err = swap.GetenvDurationOrDefault(EnvCompensationBaseDelay, cfg.CompensationBaseDelay); err != nil {
		return Config{}, err
	}

	if cfg.RecoveryGrace, err = swap.GetenvDurationOrDefault(EnvRecoveryGrace, cfg.RecoveryGrace); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the retry and recovery settings.
func (c Config) Validate() error {
	if c.CompensationAttempts < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidCompensationAttempts, c.CompensationAttempts)
	}

	if c.CompensationBaseDelay < 0 {
		return fmt.Errorf("compensation base delay: %w", ErrNegativeDelay)
	}

	if c.RecoveryGrace < 0 {
		return fmt.Errorf("recovery grace: %w", ErrNegativeDelay)
	}

	return nil
}
