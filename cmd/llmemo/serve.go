package main

import (
	"github.com/spf13/cobra"

	"github.com/pario-ai/llmemo/pkg/logging"
	"github.com/pario-ai/llmemo/pkg/server"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the caching client over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			if listen != "" {
				a.cfg.Listen = listen
			}
			a.log.Info("starting llmemo server", logging.Fields{
				"model":    a.client.Model(),
				"endpoint": a.cfg.Endpoint,
				"cache":    a.cfg.Cache.Enabled,
			})
			srv := server.New(a.cfg.Listen, a.client, a.metrics.Handler(), a.log)
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (defaults to config listen)")
	return cmd
}
