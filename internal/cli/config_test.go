package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/store"
	"github.com/keyfold/keyfold/internal/tree"
)

func TestConfigShow_PrintsCanonicalForm(t *testing.T) {
	// Non-canonical input: unsorted keys, no indentation.
	path := writeConfig(t, `{"actions":[{"value":"/a","type":"application","key":"t"}],"type":"group"}`)

	out, err := execute(t, "config", "show", path)
	require.NoError(t, err)

	got, decodeErr := tree.Decode([]byte(out))
	require.NoError(t, decodeErr)
	canonical, encodeErr := tree.Encode(got)
	require.NoError(t, encodeErr)
	assert.Equal(t, string(canonical), out, "output must already be canonical")
}

func TestConfigShow_MissingFile(t *testing.T) {
	_, err := execute(t, "config", "show", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigInit_WritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	got, decodeErr := tree.Decode(data)
	require.NoError(t, decodeErr)
	assert.True(t, got.Equal(store.DefaultTree()))
}

func TestConfigInit_RefusesExistingWithoutForce(t *testing.T) {
	path := writeConfig(t, validDoc)

	out, err := execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeConfigExists)

	// Untouched without --force.
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, validDoc, string(data))

	_, err = execute(t, "config", "init", "--force", path)
	require.NoError(t, err)
	data, readErr = os.ReadFile(path)
	require.NoError(t, readErr)
	got, decodeErr := tree.Decode(data)
	require.NoError(t, decodeErr)
	assert.True(t, got.Equal(store.DefaultTree()))
}
