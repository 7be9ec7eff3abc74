package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeType_Valid(t *testing.T) {
	valid := []NodeType{TypeGroup, TypeApplication, TypeURL, TypeCommand, TypeFolder}
	for _, nt := range valid {
		assert.True(t, nt.Valid(), "type %q should be valid", nt)
	}
	assert.False(t, NodeType("script").Valid())
	assert.False(t, NodeType("").Valid())
}

func TestNodeType_IsAction(t *testing.T) {
	assert.False(t, TypeGroup.IsAction())
	assert.True(t, TypeApplication.IsAction())
	assert.True(t, TypeURL.IsAction())
	assert.False(t, NodeType("bogus").IsAction())
}

func TestNewNodes_FreshIdentity(t *testing.T) {
	a := NewAction(TypeURL, "g", "https://github.com")
	b := NewAction(TypeURL, "g", "https://github.com")

	assert.NotEqual(t, a.ID(), b.ID(), "every node gets a unique transient identity")
	assert.True(t, a.Equal(b), "identity must not participate in structural equality")
}

func TestEqual_Structural(t *testing.T) {
	base := func() *Node {
		return NewGroup("", "",
			NewAction(TypeApplication, "t", "/Applications/Terminal.app"),
			NewGroup("b", "Browsers",
				NewAction(TypeURL, "g", "https://github.com"),
			),
		)
	}

	t.Run("identical shape", func(t *testing.T) {
		assert.True(t, base().Equal(base()))
	})

	t.Run("different value", func(t *testing.T) {
		other := base()
		other.Children[0].Value = "/Applications/iTerm.app"
		assert.False(t, base().Equal(other))
	})

	t.Run("different key", func(t *testing.T) {
		other := base()
		other.Children[1].Key = "w"
		assert.False(t, base().Equal(other))
	})

	t.Run("child order matters", func(t *testing.T) {
		other := base()
		other.Children[0], other.Children[1] = other.Children[1], other.Children[0]
		assert.False(t, base().Equal(other))
	})

	t.Run("extra child", func(t *testing.T) {
		other := base()
		other.Children = append(other.Children, NewAction(TypeFolder, "d", "~/Downloads"))
		assert.False(t, base().Equal(other))
	})

	t.Run("nil handling", func(t *testing.T) {
		var nilNode *Node
		assert.True(t, nilNode.Equal(nil))
		assert.False(t, base().Equal(nil))
	})
}

func TestClone_DeepCopy(t *testing.T) {
	orig := NewGroup("", "",
		NewGroup("b", "Browsers", NewAction(TypeURL, "g", "https://github.com")),
	)
	snap := orig.Clone()

	require.True(t, orig.Equal(snap))
	assert.Equal(t, orig.ID(), snap.ID(), "clone is a snapshot of the same logical nodes")

	// Mutating the original must leave the snapshot untouched.
	orig.Children[0].Children[0].Value = "https://example.com"
	orig.Children[0].Children = append(orig.Children[0].Children, NewAction(TypeCommand, "c", "true"))
	assert.False(t, orig.Equal(snap))
	assert.Equal(t, "https://github.com", snap.Children[0].Children[0].Value)
	assert.Len(t, snap.Children[0].Children, 1)
}

func TestSentinel(t *testing.T) {
	s := Sentinel()
	assert.True(t, s.IsSentinel())
	assert.True(t, s.IsGroup())
	assert.Empty(t, s.Children)

	// The marker is invisible to structural equality.
	assert.True(t, s.Equal(NewGroup("", "")))
	assert.False(t, NewGroup("", "").IsSentinel())
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Browsers", NewGroup("b", "Browsers").DisplayName())
	assert.Equal(t, "b", NewGroup("b", "").DisplayName())
	a := NewAction(TypeURL, "g", "https://github.com")
	assert.Equal(t, "https://github.com", a.DisplayName())
	a.Label = "GitHub"
	assert.Equal(t, "GitHub", a.DisplayName())
}
