package output

import (
	"testing"

	"metadataexporter/internal/results"

	"github.com/fatih/color"
)

func entry(batch, node string, o results.Outcome, msg string) results.Entry {
	return results.Entry{Batch: batch, NodeID: node, Outcome: o, Message: msg, Handler: "checksum", Event: "node.begin"}
}

func boolPtr(b bool) *bool {
	return &b
}

func noColor(t *testing.T) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}
