package tree

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Path identifies a node's position as the sequence of child indices from
// the root. The root's path is empty. Paths are invalidated by any insert,
// delete, move or sort at or above the addressed node.
type Path []int

// String renders the path as slash-joined indices ("0/2/1"). The root path
// renders as the empty string. This form is the map key for the store's
// validation error index.
func (p Path) String() string {
	if len(p) == 0 {
		return ""
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, "/")
}

// IsRoot reports whether p addresses the root node.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Child returns a new path addressing the i-th child of p. The receiver is
// not aliased: the result is safe to retain.
func (p Path) Child(i int) Path {
	child := make(Path, len(p)+1)
	copy(child, p)
	child[len(p)] = i
	return child
}

// At resolves a path against the subtree rooted at n.
// Returns false if any index is out of range or crosses a non-group node.
func (n *Node) At(p Path) (*Node, bool) {
	cur := n
	for _, idx := range p {
		if cur == nil || !cur.IsGroup() || idx < 0 || idx >= len(cur.Children) {
			return nil, false
		}
		cur = cur.Children[idx]
	}
	return cur, cur != nil
}

// Walk visits every node in preorder, passing each node's path. Returning
// false from fn stops the walk.
func (n *Node) Walk(fn func(p Path, n *Node) bool) {
	n.walk(nil, fn)
}

func (n *Node) walk(p Path, fn func(Path, *Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(p, n) {
		return false
	}
	for i, ch := range n.Children {
		if !ch.walk(p.Child(i), fn) {
			return false
		}
	}
	return true
}

// Find returns the path of the node with the given transient identity.
// Identity lookups are resolved to paths once per render cycle; all
// downstream bookkeeping is path-based.
func (n *Node) Find(id uuid.UUID) (Path, bool) {
	var found Path
	ok := false
	n.Walk(func(p Path, node *Node) bool {
		if node.id == id {
			found, ok = append(Path{}, p...), true
			return false
		}
		return true
	})
	return found, ok
}

// KeyPath returns the "/"-joined key sequence from the root to the node at
// p, the form telemetry records use to identify actions and groups. Nodes
// without a key contribute an empty segment; the root contributes nothing.
func (n *Node) KeyPath(p Path) (string, bool) {
	var keys []string
	cur := n
	for _, idx := range p {
		if cur == nil || !cur.IsGroup() || idx < 0 || idx >= len(cur.Children) {
			return "", false
		}
		cur = cur.Children[idx]
		keys = append(keys, cur.Key)
	}
	return strings.Join(keys, "/"), true
}
