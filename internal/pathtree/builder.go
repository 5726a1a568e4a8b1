// Package pathtree builds the nested resource tree from a flat path document
package pathtree

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"apigateway-importer/internal/swagger"
	ierrors "apigateway-importer/pkg/errors"
)

// RootSegment is the single segment of the "/" path key.
const RootSegment = "/"

// Tree is the resource tree for one document
type Tree struct {
	// Paths holds the top-level segments in document order.
	Paths *orderedmap.OrderedMap[string, *Node]

	// Computed properties
	ResourceCount int // nodes that become remote resources ("/" excluded)
	MethodCount   int
	MaxDepth      int
}

// Node is one path segment's resource
type Node struct {
	Segment string
	Path    string // full path up to and including Segment
	Depth   int    // 1 for top-level segments

	// Methods maps an upper-case verb to its operation; nil for pure routing nodes.
	Methods *orderedmap.OrderedMap[string, *swagger.Operation]

	// Paths holds child segments; nil when the node has no descendants.
	Paths *orderedmap.OrderedMap[string, *Node]
}

// HasMethods reports whether the node carries any verb.
func (n *Node) HasMethods() bool {
	return n.Methods != nil && n.Methods.Len() > 0
}

// HasChildren reports whether the node has descendants.
func (n *Node) HasChildren() bool {
	return n.Paths != nil && n.Paths.Len() > 0
}

// IsRoot reports whether the node stands for the API's "/" resource.
func (n *Node) IsRoot() bool {
	return n.Segment == RootSegment
}

// Builder builds resource trees from path documents
type Builder struct{}

// NewBuilder creates a new tree builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build creates the resource tree for the document's paths.
//
// Later verbs declared for a node that an earlier, different path key
// already reached overwrite the earlier entry for that verb.
func (b *Builder) Build(paths *orderedmap.OrderedMap[string, *swagger.PathItem]) (*Tree, error) {
	t := &Tree{
		Paths: orderedmap.New[string, *Node](),
	}
	if paths == nil {
		return t, nil
	}

	for pair := paths.Oldest(); pair != nil; pair = pair.Next() {
		segments, err := splitPath(pair.Key)
		if err != nil {
			return nil, err
		}

		route := t.Paths
		prefix := ""
		for i, part := range segments {
			node, exists := route.Get(part)
			if !exists {
				node = &Node{
					Segment: part,
					Path:    joinPath(prefix, part),
					Depth:   i + 1,
				}
				route.Set(part, node)
			}
			prefix = node.Path

			if i == len(segments)-1 {
				b.attachMethods(node, pair.Value)
				continue
			}
			if node.Paths == nil {
				node.Paths = orderedmap.New[string, *Node]()
			}
			route = node.Paths
		}
	}

	b.calculateStats(t)
	return t, nil
}

func (b *Builder) attachMethods(node *Node, item *swagger.PathItem) {
	if node.Methods == nil {
		node.Methods = orderedmap.New[string, *swagger.Operation]()
	}
	if item == nil || item.Operations == nil {
		return
	}
	for op := item.Operations.Oldest(); op != nil; op = op.Next() {
		node.Methods.Set(strings.ToUpper(op.Key), op.Value)
	}
}

// calculateStats fills the tree's computed properties
func (b *Builder) calculateStats(t *Tree) {
	t.ResourceCount, t.MethodCount, t.MaxDepth = 0, 0, 0
	t.Walk(func(n *Node) bool {
		if !n.IsRoot() {
			t.ResourceCount++
		}
		if n.Methods != nil {
			t.MethodCount += n.Methods.Len()
		}
		if n.Depth > t.MaxDepth {
			t.MaxDepth = n.Depth
		}
		return true
	})
}

// Walk visits nodes depth-first in document order. Returning false from fn
// skips the node's descendants.
func (t *Tree) Walk(fn func(*Node) bool) {
	var visit func(nodes *orderedmap.OrderedMap[string, *Node])
	visit = func(nodes *orderedmap.OrderedMap[string, *Node]) {
		if nodes == nil {
			return
		}
		for pair := nodes.Oldest(); pair != nil; pair = pair.Next() {
			if fn(pair.Value) {
				visit(pair.Value.Paths)
			}
		}
	}
	visit(t.Paths)
}

func splitPath(key string) ([]string, error) {
	if key == RootSegment {
		return []string{RootSegment}, nil
	}
	if !strings.HasPrefix(key, "/") {
		return nil, ierrors.NewInvalidPathError(key, "path must begin with /")
	}

	segments := strings.Split(key[1:], "/")
	for _, s := range segments {
		if s == "" {
			return nil, ierrors.NewInvalidPathError(key, "path contains an empty segment")
		}
	}
	return segments, nil
}

func joinPath(prefix, segment string) string {
	if segment == RootSegment {
		return RootSegment
	}
	return prefix + "/" + segment
}
