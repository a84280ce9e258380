package tree

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// writeTree creates files (with content "x") and directories below root.
// Paths ending in "/" are directories.
func writeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if p[len(p)-1] == '/' {
			if err := os.MkdirAll(full, 0o755); err != nil {
				t.Fatalf("mkdir %s: %v", full, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", full, err)
		}
	}
}

func drain(t *testing.T, it *Iterator) []Node {
	t.Helper()
	var nodes []Node
	for {
		n, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nodes
		}
		if err != nil {
			t.Fatalf("Next() error: %v", err)
		}
		nodes = append(nodes, n)
	}
}
