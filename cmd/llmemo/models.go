package main

import (
	"github.com/spf13/cobra"
)

func newModelsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models installed on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			ms, err := a.client.Models(cmd.Context())
			if err != nil {
				return err
			}
			return printModels(cmd.OutOrStdout(), ms)
		},
	}
}
