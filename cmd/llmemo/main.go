package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "llmemo",
		Short:         "llmemo - a caching client for local Ollama models",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (defaults when empty)")
	root.PersistentFlags().StringVarP(&flags.model, "model", "m", "", "override the configured model")
	root.PersistentFlags().StringVar(&flags.endpoint, "endpoint", "", "override the configured Ollama endpoint")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newAskCmd(&flags, "ask", "Ask a question with the normal variant", false),
		newAskCmd(&flags, "fast", "Ask for a short answer with the fast variant", true),
		newBatchCmd(&flags),
		newStatusCmd(&flags),
		newModelsCmd(&flags),
		newShellCmd(&flags),
		newHistoryCmd(&flags),
		newServeCmd(&flags),
		newMCPCmd(&flags),
	)
	return root
}
