package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_FileWriter_WritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.img")
	require.NoError(t, os.WriteFile(path, []byte("old image contents"), 0o644))

	var s Sink = &FileWriter{Path: path}
	require.NoError(t, s.WriteImage([]byte{1, 2, 3}))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
}

func Test_FileWriter_MissingDirectory(t *testing.T) {
	w := &FileWriter{Path: filepath.Join(t.TempDir(), "missing", "arena.img")}
	require.Error(t, w.WriteImage([]byte{1}))
}

func Test_MemWriter_CopiesBuffer(t *testing.T) {
	var w MemWriter
	src := []byte{9, 8, 7}
	require.NoError(t, w.WriteImage(src))
	src[0] = 0
	require.Equal(t, []byte{9, 8, 7}, w.Buf)

	require.NoError(t, w.WriteImage([]byte{1}))
	require.Equal(t, []byte{1}, w.Buf)
}
