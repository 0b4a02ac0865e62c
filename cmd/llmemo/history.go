package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pario-ai/llmemo/pkg/config"
	"github.com/pario-ai/llmemo/pkg/history"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the ask journal",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent asks",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, j, err := openJournal(flags)
			if err != nil {
				return err
			}
			defer j.Close()

			recs, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			total, err := j.Count(cmd.Context())
			if err != nil {
				return err
			}
			if err := printHistory(cmd.OutOrStdout(), recs); err != nil {
				return err
			}
			if len(recs) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d asks shown.\n", len(recs), total)
			}
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of asks to show")

	var keep int
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest asks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, j, err := openJournal(flags)
			if err != nil {
				return err
			}
			defer j.Close()

			if keep < 0 {
				keep = cfg.History.Keep
			}
			n, err := j.Prune(context.WithoutCancel(cmd.Context()), keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d asks, kept at most %d.\n", n, keep)
			return nil
		},
	}
	pruneCmd.Flags().IntVar(&keep, "keep", -1, "number of asks to keep (defaults to history.keep)")

	cmd.AddCommand(listCmd, pruneCmd)
	return cmd
}

// openJournal opens the configured journal even when recording is disabled,
// so old history stays inspectable.
func openJournal(flags *globalFlags) (*config.Config, *history.Journal, error) {
	cfg, err := flags.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	j, err := history.Open(cfg.History.DBPath, 0)
	if err != nil {
		return nil, nil, err
	}
	return cfg, j, nil
}
