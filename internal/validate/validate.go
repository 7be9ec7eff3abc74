// Package validate checks configuration trees against the launcher's rule
// set and raw documents against the embedded document schema.
//
// The Engine contract is what the store consumes: a pure, deterministic
// function from a full tree snapshot to a list of errors keyed by path.
// Validation is never incremental; the store re-runs it on every load and
// save and rebuilds its path index from the result.
package validate

import (
	"fmt"

	"github.com/keyfold/keyfold/internal/tree"
)

// Kind categorizes validation errors.
type Kind string

const (
	// KindDuplicateKey flags a node whose key is already taken by an
	// earlier sibling in the same group.
	KindDuplicateKey Kind = "DUPLICATE_KEY"

	// KindMissingKey flags a non-root node with no key; such a node is
	// unreachable from the keyboard.
	KindMissingKey Kind = "MISSING_KEY"

	// KindEmptyValue flags an action with nothing to launch.
	KindEmptyValue Kind = "EMPTY_VALUE"

	// KindEmptyGroup flags a group with no children.
	KindEmptyGroup Kind = "EMPTY_GROUP"
)

// Error is one validation finding, joined to its tree node by path.
type Error struct {
	Path    tree.Path `json:"path"`
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
}

func (e Error) String() string {
	return fmt.Sprintf("%s at %q: %s", e.Kind, e.Path.String(), e.Message)
}

// Engine validates a full tree snapshot. Implementations must be pure and
// deterministic: the same tree always yields the same errors in the same
// order.
type Engine interface {
	Validate(root *tree.Node) []Error
}

// Rules is the launcher's standard rule set. The zero value is ready to use.
type Rules struct{}

var _ Engine = Rules{}

// Validate walks the tree in preorder and reports findings in visit order.
func (Rules) Validate(root *tree.Node) []Error {
	var errs []Error
	root.Walk(func(p tree.Path, n *tree.Node) bool {
		if !p.IsRoot() && n.Key == "" {
			errs = append(errs, Error{
				Path:    p,
				Kind:    KindMissingKey,
				Message: fmt.Sprintf("%s %q has no key and cannot be reached", n.Type, n.DisplayName()),
			})
		}
		if n.Type.IsAction() && n.Value == "" {
			errs = append(errs, Error{
				Path:    p,
				Kind:    KindEmptyValue,
				Message: fmt.Sprintf("%s action has an empty value", n.Type),
			})
		}
		if n.IsGroup() {
			if !p.IsRoot() && len(n.Children) == 0 {
				errs = append(errs, Error{
					Path:    p,
					Kind:    KindEmptyGroup,
					Message: fmt.Sprintf("group %q has no entries", n.DisplayName()),
				})
			}
			seen := make(map[string]bool, len(n.Children))
			for i, ch := range n.Children {
				if ch.Key == "" {
					continue
				}
				if seen[ch.Key] {
					errs = append(errs, Error{
						Path:    p.Child(i),
						Kind:    KindDuplicateKey,
						Message: fmt.Sprintf("key %q is already used by an earlier sibling", ch.Key),
					})
				}
				seen[ch.Key] = true
			}
		}
		return true
	})
	return errs
}
