package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_AddAndNavigate(t *testing.T) {
	h := Load(filepath.Join(t.TempDir(), "history.txt"))

	h.Add("first")
	h.Add("second")
	h.Add("third")

	assert.Equal(t, "third", h.NavigateUp("draft"))
	assert.Equal(t, "second", h.NavigateUp(""))
	assert.Equal(t, "first", h.NavigateUp(""))
	// Up at the oldest entry stays put.
	assert.Equal(t, "first", h.NavigateUp(""))

	assert.Equal(t, "second", h.NavigateDown(""))
	assert.Equal(t, "third", h.NavigateDown(""))
	// Down past the newest entry restores the stashed draft.
	assert.Equal(t, "draft", h.NavigateDown(""))
}

func TestHistory_SkipsBlanksAndDuplicates(t *testing.T) {
	h := Load(filepath.Join(t.TempDir(), "history.txt"))

	h.Add("  ")
	h.Add("same")
	h.Add("same")
	h.Add("other")
	h.Add("same")

	assert.Equal(t, 3, h.Len())
}

func TestHistory_AppendOnlyPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")

	h := Load(path)
	h.Add("explain recursion")
	h.Add("/mcp list")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "explain recursion\n/mcp list\n", string(data))

	// A fresh load sees the persisted lines.
	h2 := Load(path)
	assert.Equal(t, 2, h2.Len())
	assert.Equal(t, "/mcp list", h2.NavigateUp(""))

	// Appending after reload preserves earlier content.
	h2.Add("what is a goroutine")
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "explain recursion\n/mcp list\n"))
}

func TestHistory_LoadCapsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.txt")

	var sb strings.Builder
	for i := 0; i < MaxEntries+50; i++ {
		sb.WriteString("line\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))

	h := Load(path)
	assert.Equal(t, MaxEntries, h.Len())
}

func TestHistory_MissingFile(t *testing.T) {
	h := Load(filepath.Join(t.TempDir(), "nope", "history.txt"))
	assert.Zero(t, h.Len())
	assert.Equal(t, "draft", h.NavigateUp("draft"))
}

func TestHistory_ResetNavigation(t *testing.T) {
	h := Load(filepath.Join(t.TempDir(), "history.txt"))
	h.Add("one")
	h.Add("two")

	assert.Equal(t, "two", h.NavigateUp(""))
	h.ResetNavigation()
	assert.Equal(t, "two", h.NavigateUp(""))
}
