// Package tree models a batch directory as an ordered sequence of nodes and
// provides the iterator that produces them.
package tree

import "fmt"

type NodeType int

const (
	NodeRoot NodeType = iota
	NodeDirectoryGroup
	NodeFile
)

func (t NodeType) String() string {
	switch t {
	case NodeRoot:
		return "Root"
	case NodeDirectoryGroup:
		return "DirectoryGroup"
	case NodeFile:
		return "File"
	default:
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
}

func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// HasChildren reports whether nodes of this type open a scope that later nodes
// may belong to.
func (t NodeType) HasChildren() bool {
	return t == NodeRoot || t == NodeDirectoryGroup
}

// Attribute is a sidecar file discovered alongside a node, typically a
// metadata document belonging to the same page group.
type Attribute struct {
	Name              string `json:"name"`
	Path              string `json:"path"`
	ChecksumReference string `json:"checksum_reference,omitempty"`
}

func (a Attribute) HasChecksum() bool {
	return a.ChecksumReference != ""
}

// Node is one position in the batch tree.
//
// Nodes hold no reference to their parent. Depth is enough for a consumer of
// the pre-order sequence to reconstruct the active ancestor chain.
type Node struct {
	Path    string   `json:"path"`
	RelPath string   `json:"rel_path"`
	Name    string   `json:"name"`
	Type    NodeType `json:"type"`
	Depth   int      `json:"depth"`

	// Virtual is set for DirectoryGroup nodes assembled from grouped files
	// rather than backed by an on-disk directory.
	Virtual bool `json:"virtual,omitempty"`

	ContentFile            string `json:"content_file,omitempty"`
	ContentDataFilePresent bool   `json:"content_data_file_present"`
	ChecksumReference      string `json:"checksum_reference,omitempty"`

	Attributes []Attribute `json:"attributes,omitempty"`
}

// ID returns the identifier used for result entries. Paths are unique within
// a single walk.
func (n Node) ID() string {
	return n.Path
}

func (n Node) HasChecksum() bool {
	return n.ChecksumReference != ""
}

// PrimaryFile returns the file a node stands for: the content file when one
// was found, otherwise the node's own path for File nodes. Directories have
// no primary file.
func (n Node) PrimaryFile() string {
	if n.ContentFile != "" {
		return n.ContentFile
	}
	if n.Type == NodeFile {
		return n.Path
	}
	return ""
}
