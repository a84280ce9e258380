package tree

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGroupID(t *testing.T) {
	rule := DefaultGroupingRule()
	tests := []struct {
		name string
		want string
	}{
		{name: "adresseavisen1759-1795-06-13-01-0006.jp2", want: "adresseavisen1759-1795-06-13-01-0006"},
		{name: "adresseavisen1759-1795-06-13-01-0006.alto.xml", want: "adresseavisen1759-1795-06-13-01-0006"},
		{name: "adresseavisen1759-1795-06-13-01-0006.jp2.md5", want: "adresseavisen1759-1795-06-13-01-0006"},
		{name: "400022028241-1.film.xml", want: "400022028241-1"},
		{name: "noextension", want: "noextension"},
	}
	for _, tt := range tests {
		if got := rule.GroupID(tt.name); got != tt.want {
			t.Errorf("GroupID(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGroupID_PatternWithoutCaptureStripsMatch(t *testing.T) {
	rule, err := NewGroupingRule(`\.[^_]+$`, DefaultContentFilePattern, DefaultChecksumSuffix, nil)
	if err != nil {
		t.Fatalf("NewGroupingRule error: %v", err)
	}
	if got := rule.GroupID("page-1.alto.xml"); got != "page-1" {
		t.Fatalf("GroupID = %q, want page-1", got)
	}
}

func TestNewGroupingRule_InvalidPatterns(t *testing.T) {
	tests := []struct {
		name     string
		grouping string
		content  string
		ignored  []string
	}{
		{name: "bad grouping", grouping: "([", content: DefaultContentFilePattern},
		{name: "empty grouping", grouping: " ", content: DefaultContentFilePattern},
		{name: "bad content", grouping: DefaultGroupingPattern, content: "(("},
		{name: "bad glob", grouping: DefaultGroupingPattern, content: DefaultContentFilePattern, ignored: []string{"[a-"}},
		{name: "bad regex ignore", grouping: DefaultGroupingPattern, content: DefaultContentFilePattern, ignored: []string{"regex:(("}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGroupingRule(tt.grouping, tt.content, DefaultChecksumSuffix, tt.ignored)
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("want *ConfigurationError, got %T: %v", err, err)
			}
		})
	}
}

func TestIsIgnored(t *testing.T) {
	rule, err := NewGroupingRule(DefaultGroupingPattern, DefaultContentFilePattern, DefaultChecksumSuffix,
		[]string{"transfer_complete", "*.tmp", "regex:^\\.DS_Store$"})
	if err != nil {
		t.Fatalf("NewGroupingRule error: %v", err)
	}
	for _, name := range []string{"transfer_complete", "scan.tmp", ".DS_Store"} {
		if !rule.IsIgnored(name) {
			t.Errorf("IsIgnored(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"transfer_completed", "page.jp2"} {
		if rule.IsIgnored(name) {
			t.Errorf("IsIgnored(%q) = true, want false", name)
		}
	}
}

func TestGroup_SameMembershipRegardlessOfInputOrder(t *testing.T) {
	rule := DefaultGroupingRule()
	names := []string{
		"p-0002.jp2",
		"p-0001.mix.xml",
		"transfer_complete",
		"p-0001.jp2.md5",
		"p-0001.jp2",
		"p-0002.alto.xml",
		"p-0001.alto.xml",
		"orphan.xml.md5",
	}
	reversed := make([]string, len(names))
	for i, n := range names {
		reversed[len(names)-1-i] = n
	}

	first := rule.Group(names)
	second := rule.Group(reversed)
	again := rule.Group(names)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("grouping depends on input order (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first, again); diff != "" {
		t.Fatalf("grouping not repeatable (-first +again):\n%s", diff)
	}

	want := []Group{
		{ID: "orphan", Members: []string{"orphan.xml.md5"}, Checksums: map[string]string{}},
		{
			ID:        "p-0001",
			Members:   []string{"p-0001.alto.xml", "p-0001.jp2", "p-0001.mix.xml"},
			Content:   "p-0001.jp2",
			Checksums: map[string]string{"p-0001.jp2": "p-0001.jp2.md5"},
		},
		{
			ID:        "p-0002",
			Members:   []string{"p-0002.alto.xml", "p-0002.jp2"},
			Content:   "p-0002.jp2",
			Checksums: map[string]string{},
		},
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("Group mismatch (-want +got):\n%s", diff)
	}
}
