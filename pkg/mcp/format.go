package mcp

import (
	"fmt"
	"strings"

	"github.com/pario-ai/llmemo/pkg/cache/memory"
	"github.com/pario-ai/llmemo/pkg/client"
	"github.com/pario-ai/llmemo/pkg/models"
)

func formatAnswer(a client.Answer) string {
	var b strings.Builder
	b.WriteString(a.Text)
	if !strings.HasSuffix(a.Text, "\n") {
		b.WriteByte('\n')
	}
	if a.CacheHit {
		fmt.Fprintf(&b, "\n[%s, %s, cache hit]", a.Model, a.Variant)
	} else {
		fmt.Fprintf(&b, "\n[%s, %s, %dms]", a.Model, a.Variant, a.Latency.Milliseconds())
	}
	return b.String()
}

func formatStatus(st models.Status) string {
	reach := "unreachable"
	if st.BackendReachable {
		reach = "reachable"
	}
	return fmt.Sprintf("Status\n"+
		"  Model:    %s\n"+
		"  Endpoint: %s\n"+
		"  Backend:  %s\n"+
		"  Cache:    %d entries\n",
		st.Model, st.Endpoint, reach, st.CacheSize)
}

func formatCacheStats(stats models.CacheStats) string {
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:   %d / %d\n"+
		"  Valid:     %d\n"+
		"  Expired:   %d\n"+
		"  Accesses:  %d\n"+
		"  Hits:      %d\n"+
		"  Misses:    %d\n"+
		"  Hit Rate:  %.1f%%\n"+
		"  Evictions: %d\n",
		stats.Total, stats.MaxCapacity, stats.Valid, stats.Expired, stats.TotalAccesses,
		stats.Hits, stats.Misses, stats.HitRate()*100, stats.Evictions)
}

func formatCleared(n int) string {
	if n == 1 {
		return "Removed 1 cached response."
	}
	return fmt.Sprintf("Removed %d cached responses.", n)
}

func formatEvict(res memory.EvictResult) string {
	return fmt.Sprintf("Optimized cache: %d expired, %d trimmed, %d remaining.",
		res.Expired, res.Trimmed, res.Remaining)
}
