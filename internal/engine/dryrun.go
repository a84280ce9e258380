package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"metadataexporter/internal/tree"
)

// dryRun prints the node tree of every batch without dispatching to any
// handler.
func (e *Engine) dryRun(ctx context.Context, targets []Target, rule *tree.GroupingRule) int {
	aborted := false
	for _, t := range targets {
		fmt.Fprintf(e.stdout, "%s (%s):\n", t.Batch.FullID(), t.Root)
		n, err := listNodes(ctx, e.stdout, t.Root, rule)
		if err != nil {
			var cErr *tree.ConfigurationError
			if errors.As(err, &cErr) {
				fmt.Fprintf(e.stderr, "Error: %v\n", err)
				return exitCodeForRun(true, false, false)
			}
			fmt.Fprintf(e.stderr, "Error walking %s: %v\n", t.Batch.FullID(), err)
			aborted = true
			continue
		}
		fmt.Fprintf(e.stdout, "%d nodes\n", n)
	}
	return exitCodeForRun(false, aborted, false)
}

func listNodes(ctx context.Context, w io.Writer, root string, rule *tree.GroupingRule) (int, error) {
	it, err := tree.NewIterator(root, rule)
	if err != nil {
		return 0, err
	}
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		node, err := it.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
		line := fmt.Sprintf("%s%s [%s]", strings.Repeat("  ", node.Depth+1), node.Name, node.Type)
		if node.Type == tree.NodeDirectoryGroup && !node.ContentDataFilePresent {
			line += " (no content)"
		}
		for _, a := range node.Attributes {
			line += " +" + a.Name
		}
		fmt.Fprintln(w, line)
	}
}
