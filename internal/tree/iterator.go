package tree

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// Iterator walks a batch directory depth first, pre-order, and yields one Node
// per call to Next. Directory contents are read lazily when the walk first
// descends into them.
//
// Traversal state is an explicit stack of directory frames, so memory is
// bounded by the depth of the tree and the width of the directories on the
// active path. An Iterator is single use: once Next has returned io.EOF or an
// error, every later call returns io.EOF.
type Iterator struct {
	root    string
	rule    *GroupingRule
	stack   []*frame
	started bool
	done    bool
}

type frame struct {
	dir    string
	rel    string
	depth  int
	info   os.FileInfo
	loaded bool
	items  []Node
	next   int
}

type entry struct {
	key  string
	node Node
}

// NewIterator validates the root directory and returns an iterator positioned
// before the root node.
func NewIterator(root string, rule *GroupingRule) (*Iterator, error) {
	if rule == nil {
		return nil, &ConfigurationError{Path: root, Err: errors.New("grouping rule must not be nil")}
	}
	if root == "" {
		return nil, &ConfigurationError{Err: errors.New("root directory must not be empty")}
	}
	root = filepath.Clean(root)
	fi, err := os.Stat(root)
	if err != nil {
		return nil, &ConfigurationError{Path: root, Err: err}
	}
	if !fi.IsDir() {
		return nil, &ConfigurationError{Path: root, Err: errors.New("not a directory")}
	}
	f, err := os.Open(root)
	if err != nil {
		return nil, &ConfigurationError{Path: root, Err: fmt.Errorf("not readable: %w", err)}
	}
	_ = f.Close()

	return &Iterator{root: root, rule: rule}, nil
}

func (it *Iterator) Root() string {
	return it.root
}

// PendingFrames returns the number of directories on the active path whose
// contents have not been fully produced yet.
func (it *Iterator) PendingFrames() int {
	return len(it.stack)
}

// Next returns the next node in pre-order. It returns io.EOF when the tree is
// exhausted and a *StructuralIOError when a directory cannot be read.
func (it *Iterator) Next() (Node, error) {
	if it.done {
		return Node{}, io.EOF
	}
	if !it.started {
		it.started = true
		it.stack = append(it.stack, &frame{dir: it.root, rel: ".", depth: 1})
		return Node{
			Path:    it.root,
			RelPath: ".",
			Name:    filepath.Base(it.root),
			Type:    NodeRoot,
			Depth:   0,
		}, nil
	}

	for len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]
		if !top.loaded {
			items, err := it.load(top)
			if err != nil {
				it.done = true
				it.stack = nil
				return Node{}, err
			}
			top.items = items
			top.loaded = true
		}
		if top.next >= len(top.items) {
			it.stack[len(it.stack)-1] = nil
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		n := top.items[top.next]
		top.items[top.next] = Node{}
		top.next++
		if n.Type == NodeDirectoryGroup && !n.Virtual {
			it.stack = append(it.stack, &frame{dir: n.Path, rel: n.RelPath, depth: n.Depth + 1})
		}
		return n, nil
	}

	it.done = true
	return Node{}, io.EOF
}

// onActivePath reports whether fi is one of the directories currently being
// walked.
func (it *Iterator) onActivePath(fi os.FileInfo) bool {
	for _, f := range it.stack {
		if f.info != nil && os.SameFile(f.info, fi) {
			return true
		}
	}
	return false
}

// load reads one directory and turns its entries into the ordered nodes of
// the next tree level. Symlinked directories are followed unless they lead
// back to a directory on the active path; such links are left out.
func (it *Iterator) load(f *frame) ([]Node, error) {
	info, err := os.Stat(f.dir)
	if err != nil {
		return nil, &StructuralIOError{Path: f.dir, Err: err}
	}
	f.info = info
	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, &StructuralIOError{Path: f.dir, Err: err}
	}

	var fileNames []string
	dirs := make(map[string]*entry)
	var entries []*entry
	for _, de := range dirEntries {
		name := de.Name()
		if it.rule.IsIgnored(name) {
			continue
		}
		isDir := de.IsDir()
		if de.Type()&os.ModeSymlink != 0 {
			fi, err := os.Stat(filepath.Join(f.dir, name))
			if err != nil {
				return nil, &StructuralIOError{Path: filepath.Join(f.dir, name), Err: err}
			}
			isDir = fi.IsDir()
			if isDir && it.onActivePath(fi) {
				continue
			}
		}
		if !isDir {
			fileNames = append(fileNames, name)
			continue
		}
		e := &entry{key: name, node: Node{
			Path:    filepath.Join(f.dir, name),
			RelPath: path.Join(f.rel, name),
			Name:    name,
			Type:    NodeDirectoryGroup,
			Depth:   f.depth,
		}}
		dirs[name] = e
		entries = append(entries, e)
	}

	for _, g := range it.rule.Group(fileNames) {
		if d, ok := dirs[g.ID]; ok {
			it.mergeIntoDirectory(f, d, g)
			continue
		}
		entries = append(entries, &entry{key: g.Members[0], node: it.groupNode(f, g)})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	nodes := make([]Node, len(entries))
	for i, e := range entries {
		nodes[i] = e.node
	}
	return nodes, nil
}

func (it *Iterator) groupNode(f *frame, g Group) Node {
	if len(g.Members) == 1 {
		name := g.Members[0]
		n := Node{
			Path:                   filepath.Join(f.dir, name),
			RelPath:                path.Join(f.rel, name),
			Name:                   name,
			Type:                   NodeFile,
			Depth:                  f.depth,
			ContentDataFilePresent: g.ContentPresent(),
			ChecksumReference:      it.sidecarPath(f, g, name),
		}
		if g.ContentPresent() {
			n.ContentFile = n.Path
		}
		return n
	}

	n := Node{
		Path:                   filepath.Join(f.dir, g.ID),
		RelPath:                path.Join(f.rel, g.ID),
		Name:                   g.ID,
		Type:                   NodeDirectoryGroup,
		Depth:                  f.depth,
		Virtual:                true,
		ContentDataFilePresent: g.ContentPresent(),
	}
	it.attachMembers(f, &n, g)
	return n
}

func (it *Iterator) mergeIntoDirectory(f *frame, d *entry, g Group) {
	if g.ContentPresent() {
		d.node.ContentDataFilePresent = true
	}
	it.attachMembers(f, &d.node, g)
}

func (it *Iterator) attachMembers(f *frame, n *Node, g Group) {
	for _, m := range g.Members {
		if m == g.Content {
			n.ContentFile = filepath.Join(f.dir, m)
			n.ChecksumReference = it.sidecarPath(f, g, m)
			continue
		}
		n.Attributes = append(n.Attributes, Attribute{
			Name:              m,
			Path:              filepath.Join(f.dir, m),
			ChecksumReference: it.sidecarPath(f, g, m),
		})
	}
}

func (it *Iterator) sidecarPath(f *frame, g Group, member string) string {
	sc, ok := g.Checksums[member]
	if !ok {
		return ""
	}
	return filepath.Join(f.dir, sc)
}
