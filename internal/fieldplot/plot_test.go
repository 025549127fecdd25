package fieldplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/testutil"
)

func linear(t *testing.T) *field.Grid {
	return testutil.GridFunc(t, field.Point{0, 0, 0}, field.Point{2, 2, 4}, [3]uint32{3, 3, 5},
		func(p field.Point) [3]float64 { return [3]float64{p[0], -p[1], 2 * p[2]} })
}

func TestProfile(t *testing.T) {
	t.Parallel()

	g := linear(t)
	start, end, err := AxisLine(field.Point{1, 1, 0}, 2, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, field.Point{1, 1, 0}, start)
	assert.Equal(t, field.Point{1, 1, 4}, end)

	pts, err := Profile(g, start, end, 5)
	require.NoError(t, err)
	require.Len(t, pts, 5)
	for i, pt := range pts {
		assert.True(t, pt.OK)
		assert.InDelta(t, float64(i), pt.S, 1e-12)
		assert.InDelta(t, 2*float64(i), pt.E.Z, 1e-12)
		assert.InDelta(t, -1, pt.E.Y, 1e-12)
	}
}

func TestProfileOutside(t *testing.T) {
	t.Parallel()

	g := linear(t)
	pts, err := Profile(g, field.Point{1, 1, 3}, field.Point{1, 1, 6}, 4)
	require.NoError(t, err)
	assert.True(t, pts[0].OK)
	assert.True(t, pts[1].OK)
	assert.False(t, pts[2].OK)
	assert.False(t, pts[3].OK)

	_, err = Profile(g, field.Point{}, field.Point{}, 1)
	assert.Error(t, err)

	_, _, err = AxisLine(field.Point{}, 3, 0, 1)
	assert.Error(t, err)
}

func TestConvergencePlotter(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "plots")
	cp, err := NewConvergencePlotter(dir)
	require.NoError(t, err)

	file, err := cp.Save()
	require.NoError(t, err)
	assert.Empty(t, file, "nothing recorded")

	rec := cp.Recorder("lens.bin")
	rec(1, 1e-2)
	rec(2, 1e-4)
	rec(3, 0)
	cp.Record("other.bin", 1, 0.5)
	assert.Equal(t, 3, cp.SampleCount())

	file, err = cp.Save()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "convergence.png"), file)
	info, err := os.Stat(file)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestProfilePath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cp, err := NewConvergencePlotter(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run_lens_sm.bin_profile.png"), cp.ProfilePath("run/lens_sm.bin"))
}

func TestSaveProfile(t *testing.T) {
	t.Parallel()

	g := linear(t)
	pts, err := Profile(g, field.Point{0, 1, 2}, field.Point{2, 1, 2}, 11)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "profile.png")
	require.NoError(t, SaveProfile(file, "x profile", pts))
	_, err = os.Stat(file)
	assert.NoError(t, err)

	err = SaveProfile(file, "empty", []ProfilePoint{{S: 0}})
	assert.Error(t, err)
}

func TestGenerateColors(t *testing.T) {
	t.Parallel()

	assert.Nil(t, generateColors(0))
	cs := generateColors(3)
	require.Len(t, cs, 3)
	assert.NotEqual(t, cs[0], cs[1])
	r, g, b := hslToRGB(0, 0, 0.5)
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}
