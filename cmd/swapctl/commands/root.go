package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/LerianStudio/lib-swap/swap"
	"github.com/LerianStudio/lib-swap/swap/log"
	swapzap "github.com/LerianStudio/lib-swap/swap/zap"
)

const (
	envName     = "SWAP_ENV"
	envLogLevel = "SWAP_LOG_LEVEL"
	serviceName = "swapctl"
)

// app carries what the root command builds for its subcommands.
type app struct {
	environment string
	logLevel    string
	logger      log.Logger
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	a := &app{logger: log.NewNop()}

	root := &cobra.Command{
		Use:          serviceName,
		Short:        "Run and inspect atomic fungible/non-fungible swaps",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := swapzap.New(swapzap.Config{
				Environment:     swapzap.Environment(a.environment),
				Level:           a.logLevel,
				OTelLibraryName: serviceName,
			})
			if err != nil {
				return err
			}

			a.logger = logger

			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync(context.Background())
		},
	}

	root.PersistentFlags().StringVar(&a.environment, "env",
		swap.GetenvOrDefault(envName, string(swapzap.EnvironmentProduction)),
		"logger profile: production, staging, development or local")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level",
		swap.GetenvOrDefault(envLogLevel, "info"),
		"minimum log level")

	root.AddCommand(runCmd(a), journalCmd(a))

	return root
}

// printYAML writes v to w as a YAML document.
func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}
