package scratch_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuriyGuts/hammurabi/internal/scratch"
)

func TestSolutionDirIsolation(t *testing.T) {
	dir, err := scratch.New()
	require.NoError(t, err)
	defer dir.Cleanup()

	a, err := dir.SolutionDir("hworld/alice")
	require.NoError(t, err)
	b, err := dir.SolutionDir("hworld/bob")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.DirExists(t, a)
	assert.DirExists(t, b)

	// Same solution maps to the same directory.
	a2, err := dir.SolutionDir("hworld/alice")
	require.NoError(t, err)
	assert.Equal(t, a, a2)
}

func TestMaterializePlainFile(t *testing.T) {
	dir, err := scratch.New()
	require.NoError(t, err)
	defer dir.Cleanup()

	plain := filepath.Join(t.TempDir(), "01.in")
	require.NoError(t, os.WriteFile(plain, []byte("3\n"), 0o644))

	path, err := dir.Materialize(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, path)
}

func TestMaterializeZstd(t *testing.T) {
	dir, err := scratch.New()
	require.NoError(t, err)
	defer dir.Cleanup()

	compressed := filepath.Join(t.TempDir(), "01.in.zst")
	f, err := os.Create(compressed)
	require.NoError(t, err)
	enc, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = enc.Write([]byte("315941512 -119267504\n"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	path, err := dir.Materialize(compressed)
	require.NoError(t, err)
	assert.NotEqual(t, compressed, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "315941512 -119267504\n", string(data))

	// A second call reuses the decompressed file.
	again, err := dir.Materialize(compressed)
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestCleanup(t *testing.T) {
	dir, err := scratch.New()
	require.NoError(t, err)

	sub, err := dir.SolutionDir("p/a")
	require.NoError(t, err)
	require.NoError(t, dir.Cleanup())
	assert.NoDirExists(t, sub)
}
