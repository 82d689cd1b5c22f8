package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExistsAndRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.bin")

	require.False(t, Exists(path))
	require.NoError(t, RemoveIfExists(path)) // missing file is fine

	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0644))
	require.True(t, Exists(path))

	require.NoError(t, RemoveIfExists(path))
	require.False(t, Exists(path))
}

func TestRemoveFilesContinuesPastMissing(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(b, nil, 0644))

	require.NoError(t, RemoveFiles(a, b))
	require.False(t, Exists(b))
}

func TestRemoveFilesReportsNonEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "x"), nil, 0644))

	err := RemoveFiles(sub)
	require.Error(t, err)
	require.Contains(t, err.Error(), sub)
}
