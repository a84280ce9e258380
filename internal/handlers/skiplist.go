package handlers

import (
	"fmt"
	"path"
	"strings"

	"metadataexporter/internal/tree"
)

// SkipList excludes nodes from a handler by relative path pattern or node
// type. The Root node is never skipped: handlers prepare and release their
// per-batch state on it.
type SkipList struct {
	Patterns []string
	Types    map[tree.NodeType]bool
}

// Options returns the standard configuration options for skipping nodes.
func (s *SkipList) Options() []Option {
	return []Option{
		{
			Name:        "skip.paths",
			Description: "Comma-separated list of path.Match patterns matched against the node path relative to the batch root (e.g. */1795-06-13-01/*).",
		},
		{
			Name:        "skip.types",
			Description: "Comma-separated list of node types to skip (DirectoryGroup, File).",
		},
	}
}

// Configure parses the skip options.
func (s *SkipList) Configure(opts map[string]string) error {
	s.Patterns = nil
	s.Types = nil

	if val, ok := opts["skip.paths"]; ok && val != "" {
		for _, p := range strings.Split(val, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, err := path.Match(p, ""); err != nil {
				return fmt.Errorf("invalid skip.paths pattern %q: %w", p, err)
			}
			s.Patterns = append(s.Patterns, p)
		}
	}

	if val, ok := opts["skip.types"]; ok && val != "" {
		s.Types = make(map[tree.NodeType]bool)
		for _, raw := range strings.Split(val, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			t, err := parseNodeType(raw)
			if err != nil {
				return err
			}
			if t == tree.NodeRoot {
				return fmt.Errorf("skip.types: the %s node cannot be skipped", t)
			}
			s.Types[t] = true
		}
	}
	return nil
}

// IsSkipped reports whether the node is excluded, and by which option.
func (s *SkipList) IsSkipped(n tree.Node) (bool, string) {
	if n.Type == tree.NodeRoot {
		return false, ""
	}
	if s.Types[n.Type] {
		return true, "skip.types"
	}
	for _, p := range s.Patterns {
		if matched, _ := path.Match(p, n.RelPath); matched {
			return true, "skip.paths"
		}
	}
	return false, ""
}

func parseNodeType(raw string) (tree.NodeType, error) {
	for _, t := range []tree.NodeType{tree.NodeRoot, tree.NodeDirectoryGroup, tree.NodeFile} {
		if strings.EqualFold(raw, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown node type %q (must be one of: Root, DirectoryGroup, File)", raw)
}
