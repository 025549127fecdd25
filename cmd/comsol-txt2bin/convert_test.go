package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/ingest"
	"github.com/banshee-data/emfield/internal/monitoring"
)

func export2x2x2() string {
	var b strings.Builder
	b.WriteString("% Model:       cell.mph\n")
	b.WriteString("% Version:     COMSOL 5.6\n")
	b.WriteString("% Date:        Jan 1 2020\n")
	b.WriteString("% Dimension:   3\n")
	b.WriteString("% Nodes:       8\n")
	b.WriteString("% Expressions: 3\n")
	b.WriteString("% Description: Electric field\n")
	b.WriteString("% Length unit: mm\n")
	b.WriteString("% x  y  z  es.Ex  es.Ey  es.Ez\n")
	for iz := 0; iz < 2; iz++ {
		for iy := 0; iy < 2; iy++ {
			for ix := 0; ix < 2; ix++ {
				fmt.Fprintf(&b, "%d %d %d 1 2 %d\n", ix, iy, iz, iz)
			}
		}
	}
	return b.String()
}

func TestConvertCOMSOL(t *testing.T) {
	monitoring.SetLogger(nil)
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("run/cell.txt", []byte(export2x2x2()), 0o644))

	cat, err := catalog.Open(filepath.Join(t.TempDir(), "cat.db"))
	require.NoError(t, err)
	defer cat.Close()

	out, err := convert(mfs, cat, "run/cell.txt", ingest.Options{})
	require.NoError(t, err)
	assert.Equal(t, "run/cell.bin", out)

	g, err := fieldtree.LoadGrid(mfs, out)
	require.NoError(t, err)
	assert.Equal(t, field.Full3D, g.Kind)
	assert.Equal(t, field.Provenance{Model: "cell.mph", Source: "cell.txt"}, g.Provenance)

	v, err := g.ValueAt(field.Point{0.5, 0.5, 0.25})
	require.NoError(t, err)
	assert.InDelta(t, 1, v.X, 1e-12)
	assert.InDelta(t, 2, v.Y, 1e-12)
	assert.InDelta(t, 0.25, v.Z, 1e-12)

	rec, err := cat.FieldByPath(out)
	require.NoError(t, err)
	assert.Equal(t, "cell.mph", rec.Model)
	assert.Equal(t, uint64(8), rec.SampleCount)
}

func TestConvertFEMMWithoutCatalogue(t *testing.T) {
	monitoring.SetLogger(nil)
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("gun.txt", []byte("% r z Er Ez\n0 0 0 1\n0 1 0 1\n1 0 2 1\n1 1 2 1\n"), 0o644))

	out, err := convert(mfs, nil, "gun.txt", ingest.Options{Format: ingest.FEMM, Model: "gun.fem"})
	require.NoError(t, err)
	assert.Equal(t, "gun.bin", out)

	g, err := fieldtree.LoadGrid(mfs, out)
	require.NoError(t, err)
	assert.Equal(t, field.Axisymmetric2D, g.Kind)
	assert.Equal(t, "gun.fem", g.Provenance.Model)
}

func TestConvertMissingInput(t *testing.T) {
	_, err := convert(fsutil.NewMemoryFileSystem(), nil, "absent.txt", ingest.Options{})
	assert.ErrorIs(t, err, ingest.ErrCantOpenIn)
}
