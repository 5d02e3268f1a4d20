package commands

import (
	"context"
	"fmt"
	"math/big"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/LerianStudio/lib-swap/swap/fee"
	"github.com/LerianStudio/lib-swap/swap/journal/badgerjournal"
	"github.com/LerianStudio/lib-swap/swap/ledger/guard"
	"github.com/LerianStudio/lib-swap/swap/ledger/memledger"
	"github.com/LerianStudio/lib-swap/swap/lock"
	"github.com/LerianStudio/lib-swap/swap/log"
	"github.com/LerianStudio/lib-swap/swap/metrics"
	"github.com/LerianStudio/lib-swap/swap/transfer"
)

type runFlags struct {
	fixture    string
	feeRate    uint64
	journalDir string
	redisAddr  string
	atomic     bool
	rateLimit  int
}

// runReport is printed after every run, successful or not.
type runReport struct {
	Receipt *transfer.Receipt `yaml:"receipt,omitempty"`
	// EffectiveRate is the withheld share of the gross as a percentage. It
	// falls below the configured rate when the fee rounds down.
	EffectiveRate string             `yaml:"effectiveRate,omitempty"`
	Error         string             `yaml:"error,omitempty"`
	Leg           string             `yaml:"failedLeg,omitempty"`
	Balances      memledger.Snapshot `yaml:"ledger"`
}

func runCmd(a *app) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one swap against a ledger seeded from a fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := transfer.ConfigFromEnv()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("fee-rate") {
				cfg.FeeRate = fee.Rate(flags.feeRate)
			}

			return runSwap(cmd, a.logger, cfg, flags)
		},
	}

	cmd.Flags().StringVar(&flags.fixture, "fixture", "", "YAML fixture with accounts and swap handles")
	cmd.Flags().Uint64Var(&flags.feeRate, "fee-rate", uint64(transfer.DefaultFeeRate), "fee percentage, overrides "+transfer.EnvFeeRatePercent)
	cmd.Flags().StringVar(&flags.journalDir, "journal", "", "badger directory for the swap journal")
	cmd.Flags().StringVar(&flags.redisAddr, "redis", "", "Redis address for distributed account locks (default: in-process locks)")
	cmd.Flags().BoolVar(&flags.atomic, "atomic", false, "run inside a ledger transaction instead of compensating")
	cmd.Flags().IntVar(&flags.rateLimit, "rate-limit", guard.DefaultConfig("").RatePerSecond, "ledger calls per second, 0 for unlimited")
	_ = cmd.MarkFlagRequired("fixture")

	return cmd
}

func runSwap(cmd *cobra.Command, logger log.Logger, cfg transfer.Config, flags runFlags) error {
	ctx := commandContext(cmd)

	fx, err := loadFixture(flags.fixture)
	if err != nil {
		return err
	}

	handles, err := fx.handles()
	if err != nil {
		return err
	}

	store := memledger.New()
	fx.seed(store)

	fungible, units, err := guardedLedgers(store, flags.rateLimit, logger)
	if err != nil {
		return err
	}

	recorder, err := metrics.NewRecorder(otel.Meter(serviceName))
	if err != nil {
		return err
	}

	opts := []transfer.Option{
		transfer.WithLogger(logger),
		transfer.WithMetrics(recorder),
	}

	if flags.atomic {
		opts = append(opts, transfer.WithEnvironment(store))
	}

	if flags.journalDir != "" {
		j, err := badgerjournal.Open(flags.journalDir, badgerjournal.WithLogger(logger))
		if err != nil {
			return err
		}

		defer func() {
			if err := j.Close(); err != nil {
				logger.Log(ctx, log.LevelError, "failed to close journal", log.Err(err))
			}
		}()

		opts = append(opts, transfer.WithJournal(j))
	}

	locker, closeLocker, err := newLocker(flags.redisAddr, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	opts = append(opts, transfer.WithLocker(locker))

	o, err := transfer.New(cfg, fungible, units, opts...)
	if err != nil {
		return err
	}

	receipt, swapErr := o.Execute(ctx, handles)

	report := runReport{Balances: store.Snapshot()}

	if swapErr != nil {
		report.Error = swapErr.Error()

		if leg, ok := transfer.FailedLeg(swapErr); ok {
			report.Leg = leg.String()
		}
	} else {
		report.Receipt = &receipt
		report.EffectiveRate = effectiveRate(receipt.Intent)
	}

	if err := printYAML(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	if swapErr != nil {
		return fmt.Errorf("swap failed: %w", swapErr)
	}

	return nil
}

func effectiveRate(intent transfer.Intent) string {
	if intent.Gross == 0 {
		return ""
	}

	withheld := decimal.NewFromBigInt(new(big.Int).SetUint64(intent.Fee), 0)
	gross := decimal.NewFromBigInt(new(big.Int).SetUint64(intent.Gross), 0)

	return withheld.Mul(decimal.NewFromInt(100)).Div(gross).StringFixed(2)
}

// guardedLedgers wraps the store's views in breakers. Domain rejections from
// the store do not count as failures.
func guardedLedgers(store *memledger.Store, rate int, logger log.Logger) (*guard.Fungible, *guard.NonFungible, error) {
	fcfg := guard.DefaultConfig("fungible")
	fcfg.RatePerSecond = rate
	fcfg.IsSuccessful = memledger.IsDomainError

	fungible, err := guard.NewFungible(store.Fungible(), fcfg, logger)
	if err != nil {
		return nil, nil, err
	}

	ucfg := guard.DefaultConfig("non-fungible")
	ucfg.RatePerSecond = rate
	ucfg.IsSuccessful = memledger.IsDomainError

	units, err := guard.NewNonFungible(store.NonFungible(), ucfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return fungible, units, nil
}

func newLocker(addr string, logger log.Logger) (lock.Locker, func(), error) {
	if addr == "" {
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	locker, err := lock.NewRedis(client, lock.DefaultLockOptions(), logger)
	if err != nil {
		_ = client.Close()

		return nil, nil, err
	}

	return locker, func() {
		if err := client.Close(); err != nil {
			logger.Log(context.Background(), log.LevelWarn, "failed to close redis client", log.Err(err))
		}
	}, nil
}
