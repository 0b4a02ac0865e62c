package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pario-ai/llmemo/pkg/client"
)

func newAskCmd(flags *globalFlags, use, short string, fast bool) *cobra.Command {
	var (
		noCache    bool
		background string
	)

	cmd := &cobra.Command{
		Use:   use + " <question>",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			v := client.VariantNormal
			if fast {
				v = client.VariantFast
			}
			ans, err := a.client.AskWithContext(cmd.Context(), v, background, strings.Join(args, " "), !noCache)
			if err != nil {
				return err
			}
			printAnswer(cmd.OutOrStdout(), ans)
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	cmd.Flags().StringVar(&background, "context", "", "background text prepended to the question and folded into the cache key")
	return cmd
}

func newBatchCmd(flags *globalFlags) *cobra.Command {
	var (
		file    string
		variant string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Ask one question per input line, concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := client.ParseVariant(variant)
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			questions, err := readLines(in)
			if err != nil {
				return err
			}
			if len(questions) == 0 {
				return fmt.Errorf("no questions given")
			}

			a, err := newApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			results := a.client.AskAll(cmd.Context(), v, questions, !noCache)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tQUESTION\tANSWER")
			failed := 0
			for i, r := range results {
				answer := truncate(r.Answer, 72)
				if r.Err != nil {
					failed++
					answer = "error: " + r.Err.Error()
				}
				fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, truncate(r.Question, 40), answer)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d questions failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "file with one question per line (- for stdin)")
	cmd.Flags().StringVar(&variant, "variant", "normal", "normal or fast")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the response cache")
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}
