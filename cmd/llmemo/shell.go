package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/llmemo/pkg/client"
)

const shellHelp = `Commands:
  ask <question>      ask with the normal variant (bare text does the same)
  fast <question>     ask with the fast variant
  nocache <question>  ask without reading or writing the cache
  stats               show cache statistics
  clear               drop every cached response
  optimize            drop expired and least-used responses
  model [name]        show or switch the model
  models              list backend models
  status              show model, endpoint and backend reachability
  help                show this help
  quit                leave the shell
`

func newShellCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session that keeps one cache across questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()
			return runShell(cmd.Context(), a.client, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runShell reads commands from in until EOF or quit.
func runShell(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "llmemo shell (model %s). Type help for commands.\n", c.Model())
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		switch strings.ToLower(verb) {
		case "quit", "exit":
			return nil
		case "help", "?":
			fmt.Fprint(out, shellHelp)
		case "ask":
			shellAsk(ctx, c, out, client.VariantNormal, rest, true)
		case "fast":
			shellAsk(ctx, c, out, client.VariantFast, rest, true)
		case "nocache":
			shellAsk(ctx, c, out, client.VariantNormal, rest, false)
		case "stats":
			printStats(out, c.CacheStats())
		case "clear":
			fmt.Fprintf(out, "Removed %d cached responses.\n", c.ClearCache())
		case "optimize":
			printEvict(out, c.Optimize())
		case "model":
			if rest == "" {
				fmt.Fprintln(out, c.Model())
				continue
			}
			if err := c.SetModel(rest); err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			fmt.Fprintf(out, "Model set to %s\n", rest)
		case "models":
			ms, err := c.Models(ctx)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			printModels(out, ms)
		case "status":
			printStatus(out, c.Status(ctx))
		default:
			shellAsk(ctx, c, out, client.VariantNormal, line, true)
		}
	}
}

func shellAsk(ctx context.Context, c *client.Client, out io.Writer, v client.Variant, q string, useCache bool) {
	if q == "" {
		fmt.Fprintln(out, "error: question is required")
		return
	}
	a, err := c.AskDetailed(ctx, v, q, useCache)
	if err != nil {
		fmt.Fprintln(out, "error:", err)
		return
	}
	printAnswer(out, a)
}
