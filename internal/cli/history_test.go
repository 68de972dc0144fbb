package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptHistoryAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	h := openPromptHistory(path, 100)
	h.Append("first prompt")
	h.Append("   ")
	h.Append("second prompt")
	h.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first prompt\nsecond prompt\n", string(data))
}

func TestPromptHistoryTrimsToLastEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	var lines []string
	for i := 0; i < 10; i++ {
		lines = append(lines, fmt.Sprintf("prompt %d", i))
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	openPromptHistory(path, 4).Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "prompt 6\nprompt 7\nprompt 8\nprompt 9\n", string(data))
}

func TestPromptHistoryZeroKeepsEverything(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0o644))

	openPromptHistory(path, 0).Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", string(data))
}

func TestPromptHistoryMissingFileIsFine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")

	h := openPromptHistory(path, 10)
	h.Append("hello")
	h.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}
