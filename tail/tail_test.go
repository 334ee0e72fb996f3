package tail

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(content)
	require.NoError(t, err)
}

func TestPoll_MissingFile(t *testing.T) {
	tailer := New(filepath.Join(t.TempDir(), "never-created.jsonl"))

	lines, err := tailer.Poll()
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, int64(0), tailer.Offset())
}

func TestPoll_CompleteLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	appendFile(t, path, "one\ntwo\n")

	tailer := New(path)
	lines, err := tailer.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)

	// Nothing new appended, nothing returned.
	lines, err = tailer.Poll()
	require.NoError(t, err)
	assert.Empty(t, lines)

	appendFile(t, path, "three\n")
	lines, err = tailer.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"three"}, lines)
}

func TestPoll_PartialLineBuffered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	tailer := New(path)

	appendFile(t, path, "complete\npar")
	lines, err := tailer.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"complete"}, lines)

	// The partial tail is held until its newline arrives, even across
	// multiple polls.
	appendFile(t, path, "ti")
	lines, err = tailer.Poll()
	require.NoError(t, err)
	assert.Empty(t, lines)

	appendFile(t, path, "al\nnext\n")
	lines, err = tailer.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"partial", "next"}, lines)
}

func TestPoll_OffsetAdvances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	appendFile(t, path, "abc\n")

	tailer := New(path)
	_, err := tailer.Poll()
	require.NoError(t, err)
	assert.Equal(t, int64(4), tailer.Offset())
}

func TestNewAt_SkipsEarlierContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	appendFile(t, path, "old\n")

	tailer := NewAt(path, 4)
	lines, err := tailer.Poll()
	require.NoError(t, err)
	assert.Empty(t, lines)

	appendFile(t, path, "new\n")
	lines, err = tailer.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, lines)
}

func TestNewAtEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	appendFile(t, path, "stale content\n")

	tailer, err := NewAtEnd(path)
	require.NoError(t, err)

	lines, err := tailer.Poll()
	require.NoError(t, err)
	assert.Empty(t, lines)

	appendFile(t, path, "fresh\n")
	lines, err = tailer.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, lines)
}

func TestNewAtEnd_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.jsonl")

	tailer, err := NewAtEnd(path)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tailer.Offset())

	appendFile(t, path, "first\n")
	lines, err := tailer.Poll()
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, lines)
}
