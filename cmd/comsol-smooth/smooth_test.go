package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldplot"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/geometry"
	"github.com/banshee-data/emfield/internal/monitoring"
	"github.com/banshee-data/emfield/internal/smooth"
	"github.com/banshee-data/emfield/internal/testutil"
	"github.com/banshee-data/emfield/internal/timeutil"
)

// cubeFS holds a 3x3x3 field with every face at 1 and the centre at 0.
func cubeFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	monitoring.SetLogger(nil)
	mfs := fsutil.NewMemoryFileSystem()
	g := testutil.GridFunc(t, field.Point{0, 0, 0}, field.Point{2, 2, 2}, [3]uint32{3, 3, 3}, func(p field.Point) [3]float64 {
		if p == (field.Point{1, 1, 1}) {
			return [3]float64{}
		}
		return [3]float64{1, 1, 1}
	})
	testutil.WriteGrid(t, mfs, "cube.bin", g)
	return mfs
}

func TestSmoothJobRun(t *testing.T) {
	mfs := cubeFS(t)
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "cat.db"))
	require.NoError(t, err)
	defer cat.Close()
	plotDir := t.TempDir()
	cp, err := fieldplot.NewConvergencePlotter(plotDir)
	require.NoError(t, err)

	started := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	job := &smoothJob{fsys: mfs, passes: 2, plotter: cp, cat: cat, clock: timeutil.NewMockClock(started)}
	out, res, err := job.run("cube.bin")
	require.NoError(t, err)
	assert.Equal(t, "cube_sm.bin", out)
	require.Len(t, res.Errors, 2)
	assert.Equal(t, 0.0, res.Errors[1])

	g, err := fieldtree.LoadGrid(mfs, out)
	require.NoError(t, err)
	centre := g.IndexAt(1, 1, 1) * 3
	assert.InDelta(t, 1.0, g.Samples[centre], 1e-15)
	assert.Equal(t, "fixture", g.Provenance.Model)

	// The zero second-pass error has no logarithm.
	assert.Equal(t, 1, cp.SampleCount())
	_, err = os.Stat(filepath.Join(plotDir, "cube_sm.bin_profile.png"))
	assert.NoError(t, err)

	runs, err := cat.RunsForField("cube.bin")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, out, runs[0].OutputPath)
	assert.Equal(t, 1, runs[0].Free)
	assert.Equal(t, 26, runs[0].Fixed)
	assert.Equal(t, res.Errors, runs[0].PassErrors)
	assert.True(t, started.Equal(runs[0].StartedAt))
	assert.Zero(t, runs[0].Duration)

	_, err = cat.FieldByPath(out)
	assert.NoError(t, err)
}

func TestSmoothJobGeometryPinsCentre(t *testing.T) {
	mfs := cubeFS(t)
	require.NoError(t, mfs.WriteFile("lens.geom", []byte("BCGeom\nicyl 1 1 0 1 1 2 0.1 5\nend\n"), 0o644))

	prims, err := loadGeometry(mfs, "lens.geom")
	require.NoError(t, err)
	require.Len(t, prims, 1)

	job := &smoothJob{fsys: mfs, passes: 3, geometry: prims}
	_, res, err := job.run("cube.bin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.GeometryFixed)
	assert.Equal(t, 0, res.Free)
	assert.Equal(t, []float64{0, 0, 0}, res.Errors)

	g, err := fieldtree.LoadGrid(mfs, "cube_sm.bin")
	require.NoError(t, err)
	assert.Equal(t, 0.0, g.Samples[g.IndexAt(1, 1, 1)*3])
}

func TestLoadGeometryRejects(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("bad.geom", []byte("icyl 0 0 0 0 0 1 1 1\n"), 0o644))

	_, err := loadGeometry(mfs, "bad.geom")
	assert.ErrorIs(t, err, geometry.ErrBadGeom)

	_, err = loadGeometry(mfs, "absent.geom")
	assert.ErrorIs(t, err, fieldtree.ErrCantOpenIn)
}

func TestSmoothJobRejectsAxisymmetric(t *testing.T) {
	monitoring.SetLogger(nil)
	mfs := fsutil.NewMemoryFileSystem()
	g := testutil.AxisymmetricGrid(t, 1, 0, 1, 3, 3, func(r, z float64) [2]float64 { return [2]float64{r, z} })
	testutil.WriteGrid(t, mfs, "slice.bin", g)

	job := &smoothJob{fsys: mfs, passes: 1}
	_, _, err := job.run("slice.bin")
	assert.ErrorIs(t, err, smooth.ErrNot4Fold)
}
