package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pario-ai/llmemo/pkg/cache/memory"
	"github.com/pario-ai/llmemo/pkg/client"
	"github.com/pario-ai/llmemo/pkg/models"
	"github.com/pario-ai/llmemo/pkg/ollama"
)

func printAnswer(w io.Writer, a client.Answer) {
	fmt.Fprintln(w, strings.TrimRight(a.Text, "\n"))
	fmt.Fprintln(w)
	if a.CacheHit {
		fmt.Fprintf(w, "cache hit (%s, %s)\n", a.Model, a.Variant)
		return
	}
	fmt.Fprintf(w, "took %s (%s, %s)\n", a.Latency.Round(time.Millisecond), a.Model, a.Variant)
}

func printStatus(w io.Writer, st models.Status) error {
	reach := "unreachable"
	if st.BackendReachable {
		reach = "reachable"
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Model:\t%s\n", st.Model)
	fmt.Fprintf(tw, "Endpoint:\t%s\n", st.Endpoint)
	fmt.Fprintf(tw, "Backend:\t%s\n", reach)
	fmt.Fprintf(tw, "Cache:\t%s entries\n", humanize.Comma(int64(st.CacheSize)))
	return tw.Flush()
}

func printStats(w io.Writer, st models.CacheStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Entries:\t%s / %s\n", humanize.Comma(int64(st.Total)), humanize.Comma(int64(st.MaxCapacity)))
	fmt.Fprintf(tw, "Valid:\t%s\n", humanize.Comma(int64(st.Valid)))
	fmt.Fprintf(tw, "Expired:\t%s\n", humanize.Comma(int64(st.Expired)))
	fmt.Fprintf(tw, "Accesses:\t%s\n", humanize.Comma(st.TotalAccesses))
	fmt.Fprintf(tw, "Hits / Misses:\t%s / %s\n", humanize.Comma(st.Hits), humanize.Comma(st.Misses))
	fmt.Fprintf(tw, "Hit rate:\t%.1f%%\n", st.HitRate()*100)
	fmt.Fprintf(tw, "Evictions:\t%s\n", humanize.Comma(st.Evictions))
	return tw.Flush()
}

func printEvict(w io.Writer, res memory.EvictResult) {
	fmt.Fprintf(w, "Removed %d expired and %d least-used entries; %d remain.\n",
		res.Expired, res.Trimmed, res.Remaining)
}

func printModels(w io.Writer, ms []models.ModelInfo) error {
	if len(ms) == 0 {
		fmt.Fprintln(w, "No models installed.")
		return nil
	}
	largest, _ := ollama.Largest(ms)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\t")
	for _, m := range ms {
		mark := ""
		if m.Name == largest.Name {
			mark = "largest"
		}
		modified := "-"
		if !m.ModifiedAt.IsZero() {
			modified = humanize.Time(m.ModifiedAt)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, humanize.Bytes(uint64(m.Size)), modified, mark)
	}
	return tw.Flush()
}

func printHistory(w io.Writer, recs []models.HistoryRecord) error {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No history recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tMODEL\tVARIANT\tCACHE\tLATENCY\tQUESTION\tERROR")
	for _, r := range recs {
		cache := "miss"
		if r.CacheHit {
			cache = "hit"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dms\t%s\t%s\n",
			humanize.Time(r.CreatedAt), r.Model, r.Variant, cache, r.LatencyMs, truncate(r.Question, 48), truncate(r.Error, 40))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
