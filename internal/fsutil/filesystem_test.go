package fsutil

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "fields/lens.bin", Resolve("fields", "lens.bin"))
	assert.Equal(t, "/abs/lens.bin", Resolve("fields", "/abs/lens.bin"))
	assert.Equal(t, "lens.bin", Resolve("", "./lens.bin"))
}

func TestSwapExt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "lens_sm.bin", SwapExt("lens.txt", "_sm.bin"))
	assert.Equal(t, "dir/a.b.bin", SwapExt("dir/a.b.txt", ".bin"))
	assert.Equal(t, "noext.bin", SwapExt("noext", ".bin"))
}

func TestMemoryFileSystem_WriteOpenSeek(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/data/grid.bin", []byte("0123456789"), 0644))

	f, err := mfs.Open("/data/../data/grid.bin")
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 4)
	_, err = io.ReadFull(f, buf)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(buf))

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)
	all, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(all))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "grid.bin", info.Name())
	assert.Equal(t, int64(10), info.Size())
}

func TestMemoryFileSystem_CreateAndStat(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	w, err := mfs.Create("out.bin")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := mfs.ReadFile("out.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	info, err := mfs.Stat("out.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size())
	assert.False(t, info.IsDir())
}

func TestMemoryFileSystem_Missing(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	_, err := mfs.Open("nope")
	assert.Error(t, err)
	_, err = mfs.ReadFile("nope")
	assert.Error(t, err)
	_, err = mfs.Stat("nope")
	assert.Error(t, err)
	assert.Error(t, mfs.Remove("nope"))
}

func TestMemoryFileSystem_DirsAndRemove(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	require.NoError(t, mfs.MkdirAll("plots/run1", 0755))

	info, err := mfs.Stat("plots")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, mfs.WriteFile("plots/run1/a.png", nil, 0644))
	require.NoError(t, mfs.Remove("plots/run1/a.png"))
	_, err = mfs.Stat("plots/run1/a.png")
	assert.Error(t, err)
}

func TestMemoryFileSystem_Glob(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	for _, n := range []string{"f/b.bin", "f/a.bin", "f/c.txt"} {
		require.NoError(t, mfs.WriteFile(n, nil, 0644))
	}
	got, err := mfs.Glob("f/*.bin")
	require.NoError(t, err)
	assert.Equal(t, []string{"f/a.bin", "f/b.bin"}, got)
}

func TestOSFileSystem_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	osfs := OSFileSystem{}
	path := filepath.Join(dir, "sub", "x.txt")

	require.NoError(t, osfs.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, osfs.WriteFile(path, []byte("hello"), 0644))

	f, err := osfs.Open(path)
	require.NoError(t, err)
	_, err = f.Seek(1, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "ello", string(rest))

	matches, err := osfs.Glob(filepath.Join(dir, "sub", "*.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, matches)

	require.NoError(t, osfs.Remove(path))
	_, err = osfs.Stat(path)
	assert.Error(t, err)
}

func TestExpandArgs(t *testing.T) {
	t.Parallel()

	mfs := NewMemoryFileSystem()
	for _, n := range []string{"run/b.txt", "run/a.txt", "run/a.bin"} {
		require.NoError(t, mfs.WriteFile(n, nil, 0o644))
	}

	got, err := ExpandArgs(mfs, []string{"first.txt", "run/*.txt", "absent.txt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first.txt", "run/a.txt", "run/b.txt", "absent.txt"}, got)

	_, err = ExpandArgs(mfs, []string{"run/*.dat"})
	assert.ErrorContains(t, err, "matches no files")

	_, err = ExpandArgs(mfs, []string{"run/[.txt"})
	assert.Error(t, err)
}
