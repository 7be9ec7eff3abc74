package tree

import (
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// NodeType discriminates node variants. The persisted "type" field doubles
// as the tagged-union discriminator: "group" marks a container, every other
// valid value is an action kind.
type NodeType string

const (
	TypeGroup       NodeType = "group"
	TypeApplication NodeType = "application"
	TypeURL         NodeType = "url"
	TypeCommand     NodeType = "command"
	TypeFolder      NodeType = "folder"
)

// Valid reports whether t is a recognized node type.
func (t NodeType) Valid() bool {
	switch t {
	case TypeGroup, TypeApplication, TypeURL, TypeCommand, TypeFolder:
		return true
	}
	return false
}

// IsAction reports whether t is an action kind (any valid type except group).
func (t NodeType) IsAction() bool {
	return t.Valid() && t != TypeGroup
}

// Node is a single configuration tree node. A node with Type == TypeGroup
// holds Children and ignores Value; any other valid type is a leaf action
// holding Value and ignoring Children.
//
// The unexported id is the transient identity: unique per process, never
// persisted, excluded from Equal.
type Node struct {
	id       uuid.UUID
	sentinel bool

	Type     NodeType
	Key      string
	Label    string
	IconPath string
	Value    string  // action kinds only
	Children []*Node // TypeGroup only
}

// NewGroup creates a group node with a fresh transient identity.
// The root group of a tree has an empty key.
func NewGroup(key, label string, children ...*Node) *Node {
	return &Node{
		id:       uuid.New(),
		Type:     TypeGroup,
		Key:      norm.NFC.String(key),
		Label:    norm.NFC.String(label),
		Children: children,
	}
}

// NewAction creates an action leaf with a fresh transient identity.
func NewAction(t NodeType, key, value string) *Node {
	return &Node{
		id:    uuid.New(),
		Type:  t,
		Key:   norm.NFC.String(key),
		Value: norm.NFC.String(value),
	}
}

// Sentinel returns the error-marker tree installed after a failed load.
// It is an empty root group that the store refuses to persist.
func Sentinel() *Node {
	return &Node{id: uuid.New(), Type: TypeGroup, sentinel: true}
}

// ID returns the node's transient identity.
func (n *Node) ID() uuid.UUID { return n.id }

// IsSentinel reports whether n is the post-corruption error marker.
func (n *Node) IsSentinel() bool { return n != nil && n.sentinel }

// IsGroup reports whether n is a container node.
func (n *Node) IsGroup() bool { return n != nil && n.Type == TypeGroup }

// DisplayName returns the label if set, otherwise the value (actions) or
// key (groups). Used for diagnostics and stats output.
func (n *Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}
	if n.Type.IsAction() {
		return n.Value
	}
	return n.Key
}

// Clone returns a deep copy of the subtree rooted at n. The copy shares the
// original transient identities: it is a snapshot of the same logical nodes,
// taken so background encoding never races UI mutation.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		id:       n.id,
		sentinel: n.sentinel,
		Type:     n.Type,
		Key:      n.Key,
		Label:    n.Label,
		IconPath: n.IconPath,
		Value:    n.Value,
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Equal reports structural equality: key, type, label, icon, value and
// children compared recursively, order-sensitive. Transient identity and
// the sentinel marker are ignored.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Type != o.Type || n.Key != o.Key || n.Label != o.Label ||
		n.IconPath != o.IconPath || n.Value != o.Value {
		return false
	}
	if len(n.Children) != len(o.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}
