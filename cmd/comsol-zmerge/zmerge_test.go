package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/merge"
	"github.com/banshee-data/emfield/internal/monitoring"
	"github.com/banshee-data/emfield/internal/testutil"
)

func writeSlab(t *testing.T, mfs fsutil.FileSystem, path string, zmin, zmax float64, nz uint32) {
	t.Helper()
	g := testutil.GridFunc(t, field.Point{-1, -1, zmin}, field.Point{1, 1, zmax}, [3]uint32{3, 3, nz},
		func(p field.Point) [3]float64 { return [3]float64{p[0], p[1], p[2]} })
	testutil.WriteGrid(t, mfs, path, g)
}

func TestMergeFiles(t *testing.T) {
	monitoring.SetLogger(nil)
	mfs := fsutil.NewMemoryFileSystem()
	writeSlab(t, mfs, "run/upper.bin", 1, 2, 3)
	writeSlab(t, mfs, "run/lower.bin", 0, 1, 3)

	out, err := mergeFiles(mfs, nil, "run/upper.bin", "run/lower.bin", 0)
	require.NoError(t, err)
	assert.Equal(t, "run/lower_0.00-2.00.bin", out)

	g, err := fieldtree.LoadGrid(mfs, out)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), g.Extents[2].Count)
	assert.Equal(t, "lower_0.00-2.00.bin", g.Provenance.Source)

	v, err := g.ValueAt(field.Point{0.5, -0.5, 1.75})
	require.NoError(t, err)
	assert.InDelta(t, 1.75, v.Z, 1e-12)
}

func TestMergeFilesRejects(t *testing.T) {
	monitoring.SetLogger(nil)
	mfs := fsutil.NewMemoryFileSystem()
	writeSlab(t, mfs, "a.bin", 0, 1, 3)
	writeSlab(t, mfs, "far.bin", 5, 6, 3)

	_, err := mergeFiles(mfs, nil, "a.bin", "far.bin", 0)
	assert.ErrorIs(t, err, merge.ErrXYCompat)

	_, err = mergeFiles(mfs, nil, "a.bin", "absent.bin", 0)
	assert.ErrorIs(t, err, fieldtree.ErrCantOpenIn)
}
