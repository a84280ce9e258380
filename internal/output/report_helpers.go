package output

import (
	"fmt"
	"sort"
	"strings"

	"metadataexporter/internal/results"
)

type batchStats struct {
	Batch    string
	Nodes    int
	Success  bool
	Error    string
	Failures []results.Entry
	Warnings []results.Entry
}

func (b *batchStats) Verdict() string {
	switch {
	case b.Error != "":
		return "❌ aborted"
	case len(b.Failures) > 0:
		return "❌ failed"
	case len(b.Warnings) > 0:
		return "⚠️ ok with warnings"
	default:
		return "✅ ok"
	}
}

type reasonCount struct {
	Reason string
	Nodes  []string
}

// groupByReason buckets entries by normalized message, most frequent first.
func groupByReason(entries []results.Entry) []reasonCount {
	idx := make(map[string]int)
	var out []reasonCount
	for _, e := range entries {
		reason := normalizeReason(e.Message)
		i, ok := idx[reason]
		if !ok {
			i = len(out)
			idx[reason] = i
			out = append(out, reasonCount{Reason: reason})
		}
		out[i].Nodes = append(out[i].Nodes, e.NodeID)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Nodes) > len(out[j].Nodes)
	})
	return out
}

// normalizeReason collapses whitespace and drops per-file detail so messages
// about different files share one bucket.
func normalizeReason(msg string) string {
	s := strings.Join(strings.Fields(msg), " ")

	// "checksum: missing checksum file for 0006.jp2" -> "checksum: missing checksum file"
	if idx := strings.LastIndex(s, " for "); idx != -1 && !strings.Contains(s[idx+5:], " ") {
		s = s[:idx]
	}

	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

func formatNodeList(nodes []string, max int) string {
	if len(nodes) == 0 {
		return ""
	}
	if len(nodes) <= max {
		return fmt.Sprintf("%d nodes (%s)", len(nodes), strings.Join(nodes, ", "))
	}
	return fmt.Sprintf("%d nodes (%s, +%d more)", len(nodes), strings.Join(nodes[:max], ", "), len(nodes)-max)
}
