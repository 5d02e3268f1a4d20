package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/LerianStudio/lib-swap/swap/journal"
	"github.com/LerianStudio/lib-swap/swap/journal/badgerjournal"
	"github.com/LerianStudio/lib-swap/swap/log"
)

var allStatuses = []journal.Status{
	journal.StatusPending,
	journal.StatusCompensationFailed,
	journal.StatusCompensated,
	journal.StatusAborted,
	journal.StatusCommitted,
}

func journalCmd(a *app) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect a swap journal",
	}

	cmd.PersistentFlags().StringVar(&dir, "journal", "", "badger directory of the swap journal")
	_ = cmd.MarkPersistentFlagRequired("journal")

	cmd.AddCommand(journalListCmd(a, &dir), journalGetCmd(a, &dir))

	return cmd
}

func journalListCmd(a *app, dir *string) *cobra.Command {
	var (
		status string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, oldest first within each status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses := allStatuses

			if status != "" {
				parsed, err := journal.ParseStatus(status)
				if err != nil {
					return err
				}

				statuses = []journal.Status{parsed}
			}

			return withJournal(*dir, a.logger, func(j *badgerjournal.Journal) error {
				entries := make([]*journal.Entry, 0)

				for _, s := range statuses {
					found, err := j.ListByStatus(commandContext(cmd), s, limit)
					if err != nil {
						return err
					}

					entries = append(entries, found...)
				}

				return printYAML(cmd.OutOrStdout(), entries)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only entries in this status (PENDING, COMMITTED, ABORTED, COMPENSATED, COMPENSATION_FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries per status, 0 for all")

	return cmd
}

func journalGetCmd(a *app, dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid entry id %q: %w", args[0], err)
			}

			return withJournal(*dir, a.logger, func(j *badgerjournal.Journal) error {
				entry, err := j.Get(commandContext(cmd), id)
				if err != nil {
					return err
				}

				return printYAML(cmd.OutOrStdout(), entry)
			})
		},
	}
}

func withJournal(dir string, logger log.Logger, fn func(*badgerjournal.Journal) error) error {
	j, err := badgerjournal.Open(dir, badgerjournal.WithLogger(logger))
	if err != nil {
		return err
	}

	defer func() {
		if err := j.Close(); err != nil {
			logger.Log(context.Background(), log.LevelError, "failed to close journal", log.Err(err))
		}
	}()

	return fn(j)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
