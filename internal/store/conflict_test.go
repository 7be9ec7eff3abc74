package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/tree"
)

// externalEdit rewrites the config file behind the store's back.
func externalEdit(t *testing.T, path string, root *tree.Node) []byte {
	t.Helper()
	data, err := tree.Encode(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return data
}

func TestSave_ConflictCancelLeavesDiskUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	var seen []Conflict
	s := newTestStore(t, Options{
		Path: path,
		Prompter: PrompterFunc(func(c Conflict) Choice {
			seen = append(seen, c)
			return ChoiceCancel
		}),
	})
	_, err := s.Load()
	require.NoError(t, err)

	external := treeWithLabel("external")
	diskBytes := externalEdit(t, path, external)

	res := s.Save(treeWithLabel("mine"))
	require.NoError(t, res.Err)
	assert.True(t, res.Conflict)
	assert.Equal(t, ChoiceCancel, res.Choice)
	assert.False(t, res.Written)

	require.Len(t, seen, 1)
	assert.Equal(t, path, seen[0].Path)
	assert.Equal(t, digest(diskBytes), seen[0].DiskChecksum)
	assert.NotEqual(t, seen[0].DiskChecksum, seen[0].LastChecksum)

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, diskBytes, got)
}

func TestSave_ConflictOverwriteWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s := newTestStore(t, Options{
		Path:     path,
		Prompter: PrompterFunc(func(Conflict) Choice { return ChoiceOverwrite }),
	})
	_, err := s.Load()
	require.NoError(t, err)

	externalEdit(t, path, treeWithLabel("external"))

	mine := treeWithLabel("mine")
	res := s.Save(mine)
	require.NoError(t, res.Err)
	assert.True(t, res.Conflict)
	assert.Equal(t, ChoiceOverwrite, res.Choice)
	assert.True(t, res.Written)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	got, decodeErr := tree.Decode(data)
	require.NoError(t, decodeErr)
	assert.True(t, got.Equal(mine))
	assert.Equal(t, digest(data), s.Checksum())
}

func TestSave_ConflictReloadAdoptsDiskState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s := newTestStore(t, Options{
		Path:     path,
		Prompter: PrompterFunc(func(Conflict) Choice { return ChoiceReload }),
	})
	_, err := s.Load()
	require.NoError(t, err)

	external := treeWithLabel("external")
	diskBytes := externalEdit(t, path, external)

	res := s.Save(treeWithLabel("mine"))
	require.NoError(t, res.Err)
	assert.True(t, res.Conflict)
	assert.Equal(t, ChoiceReload, res.Choice)
	assert.False(t, res.Written)

	// The store now mirrors the external edit; the file keeps it.
	assert.True(t, s.Tree().Equal(external))
	assert.Equal(t, digest(diskBytes), s.Checksum())
	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, diskBytes, got)
}

func TestSave_NilPrompterCancels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s := newTestStore(t, Options{Path: path})
	_, err := s.Load()
	require.NoError(t, err)

	diskBytes := externalEdit(t, path, treeWithLabel("external"))

	res := s.Save(treeWithLabel("mine"))
	require.NoError(t, res.Err)
	assert.True(t, res.Conflict)
	assert.Equal(t, ChoiceCancel, res.Choice)
	assert.False(t, res.Written)

	got, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, diskBytes, got)
}

func TestSave_UnknownChoiceFallsBackToCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	s := newTestStore(t, Options{
		Path:     path,
		Prompter: PrompterFunc(func(Conflict) Choice { return Choice("merge") }),
	})
	_, err := s.Load()
	require.NoError(t, err)

	externalEdit(t, path, treeWithLabel("external"))

	res := s.Save(treeWithLabel("mine"))
	assert.True(t, res.Conflict)
	assert.Equal(t, ChoiceCancel, res.Choice)
	assert.False(t, res.Written)
}

func TestSave_NoConflictWhenDiskUnchanged(t *testing.T) {
	s := newTestStore(t, Options{
		Path: filepath.Join(t.TempDir(), "config.json"),
		Prompter: PrompterFunc(func(Conflict) Choice {
			panic("prompter must not run without a conflict")
		}),
	})
	_, err := s.Load()
	require.NoError(t, err)

	res := s.Save(treeWithLabel("mine"))
	require.NoError(t, res.Err)
	assert.False(t, res.Conflict)
	assert.True(t, res.Written)
}
