package tree

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

const (
	// DefaultGroupingPattern captures everything before the first extension
	// that contains no underscore, so "page-0006.alto.xml" and
	// "page-0006.jp2" share the group id "page-0006".
	DefaultGroupingPattern = `^(.+?)\.[^_]+$`

	DefaultContentFilePattern = `.*\.jp2$`
	DefaultChecksumSuffix     = ".md5"

	regexIgnorePrefix = "regex:"
)

// DefaultIgnoredFiles are the transfer marker files dropped into a batch by the
// ingest workflow.
var DefaultIgnoredFiles = []string{"transfer_complete", "transfer_acknowledged", "delete_ok"}

// GroupingRule decides how raw file names collapse into logical nodes. It is
// immutable once constructed.
type GroupingRule struct {
	grouping       *regexp.Regexp
	content        *regexp.Regexp
	checksumSuffix string
	ignored        []ignoreMatcher
}

type ignoreMatcher struct {
	glob string
	re   *regexp.Regexp
}

func (m ignoreMatcher) match(name string) bool {
	if m.re != nil {
		return m.re.MatchString(name)
	}
	ok, _ := path.Match(m.glob, name)
	return ok
}

// NewGroupingRule compiles a rule. Ignore patterns are basename globs
// (path.Match syntax); a "regex:" prefix marks a regular expression instead.
func NewGroupingRule(groupingPattern, contentFilePattern, checksumSuffix string, ignored []string) (*GroupingRule, error) {
	if strings.TrimSpace(groupingPattern) == "" {
		return nil, &ConfigurationError{Err: fmt.Errorf("grouping pattern must not be empty")}
	}
	grouping, err := regexp.Compile(groupingPattern)
	if err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("invalid grouping pattern %q: %w", groupingPattern, err)}
	}
	if strings.TrimSpace(contentFilePattern) == "" {
		return nil, &ConfigurationError{Err: fmt.Errorf("content file pattern must not be empty")}
	}
	content, err := regexp.Compile(contentFilePattern)
	if err != nil {
		return nil, &ConfigurationError{Err: fmt.Errorf("invalid content file pattern %q: %w", contentFilePattern, err)}
	}

	r := &GroupingRule{
		grouping:       grouping,
		content:        content,
		checksumSuffix: checksumSuffix,
	}
	for _, raw := range ignored {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		if expr, ok := strings.CutPrefix(p, regexIgnorePrefix); ok {
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, &ConfigurationError{Err: fmt.Errorf("invalid ignore pattern %q: %w", p, err)}
			}
			r.ignored = append(r.ignored, ignoreMatcher{re: re})
			continue
		}
		if _, err := path.Match(p, ""); err != nil {
			return nil, &ConfigurationError{Err: fmt.Errorf("invalid ignore pattern %q: %w", p, err)}
		}
		r.ignored = append(r.ignored, ignoreMatcher{glob: p})
	}
	return r, nil
}

// DefaultGroupingRule returns the rule used for newspaper batches with JPEG
// 2000 page images.
func DefaultGroupingRule() *GroupingRule {
	r, err := NewGroupingRule(DefaultGroupingPattern, DefaultContentFilePattern, DefaultChecksumSuffix, DefaultIgnoredFiles)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *GroupingRule) ChecksumSuffix() string {
	return r.checksumSuffix
}

func (r *GroupingRule) IsIgnored(name string) bool {
	for _, m := range r.ignored {
		if m.match(name) {
			return true
		}
	}
	return false
}

func (r *GroupingRule) IsContent(name string) bool {
	return r.content.MatchString(name)
}

// GroupID returns the logical group a file name belongs to.
func (r *GroupingRule) GroupID(name string) string {
	loc := r.grouping.FindStringSubmatchIndex(name)
	if loc == nil {
		return name
	}
	if len(loc) >= 4 && loc[2] >= 0 {
		if id := name[loc[2]:loc[3]]; id != "" {
			return id
		}
		return name
	}
	if id := name[:loc[0]] + name[loc[1]:]; id != "" {
		return id
	}
	return name
}

// Group is one logical unit assembled from the files of a single directory.
type Group struct {
	ID string

	// Members are the grouped file names in lexicographic order. Checksum
	// sidecars are not members.
	Members []string

	// Content is the member matching the content file pattern, if any.
	Content string

	// Checksums maps a member to the name of its checksum sidecar.
	Checksums map[string]string
}

func (g Group) ContentPresent() bool {
	return g.Content != ""
}

// Group partitions the file names of one directory. Ignored names are
// dropped. Groups are returned in the order of their lexicographically first
// member, which makes the result independent of the input order.
func (r *GroupingRule) Group(names []string) []Group {
	sorted := make([]string, 0, len(names))
	present := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n == "" || r.IsIgnored(n) {
			continue
		}
		if _, dup := present[n]; dup {
			continue
		}
		present[n] = struct{}{}
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	sidecars := make(map[string]string)
	isSidecar := make(map[string]bool)
	if r.checksumSuffix != "" {
		for _, n := range sorted {
			target, ok := strings.CutSuffix(n, r.checksumSuffix)
			if !ok || target == "" {
				continue
			}
			if _, exists := present[target]; !exists {
				continue
			}
			sidecars[target] = n
			isSidecar[n] = true
		}
	}

	var groups []Group
	index := make(map[string]int)
	for _, n := range sorted {
		if isSidecar[n] {
			continue
		}
		id := r.GroupID(n)
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group{ID: id, Checksums: make(map[string]string)})
		}
		g := &groups[i]
		g.Members = append(g.Members, n)
		if g.Content == "" && r.IsContent(n) {
			g.Content = n
		}
		if sc, ok := sidecars[n]; ok {
			g.Checksums[n] = sc
		}
	}
	return groups
}
