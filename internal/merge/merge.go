// Package merge joins two Full3D grids that share an x/y lattice and are
// adjacent along z.
package merge

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/monitoring"
)

// ErrXYCompat reports grids whose x/y lattices or z spacing differ, or
// whose z ranges neither touch nor overlap.
var ErrXYCompat = errors.New("grids not xy compatible")

// DefaultTolerance is the relative tolerance for comparing extents.
const DefaultTolerance = 1e-6

// latticeSlop is how far, in planes, the two z lattices may be misaligned.
const latticeSlop = 1e-3

var logf = monitoring.Component("merge")

// Options tunes the comparison; the zero value uses DefaultTolerance.
type Options struct {
	Tolerance float64
}

func (o Options) nearlyEqual(a, b float64) bool {
	tol := o.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if a == b {
		return true
	}
	return scalar.EqualWithinRel(a, b, tol)
}

// XYCompatible checks that a and b can be stacked along z and returns the
// one starting lower in z. On equal minima b is treated as the lower grid.
func XYCompatible(a, b *field.Grid) (*field.Grid, error) {
	return Options{}.XYCompatible(a, b)
}

// XYCompatible is the package-level XYCompatible with o's tolerance.
func (o Options) XYCompatible(a, b *field.Grid) (*field.Grid, error) {
	if a.Kind != field.Full3D || b.Kind != field.Full3D {
		return nil, fmt.Errorf("%w: merge needs two full-3d grids, got %s and %s", ErrXYCompat, a.Kind, b.Kind)
	}
	names := [2]string{"x", "y"}
	for i := 0; i < 2; i++ {
		ea, eb := a.Extents[i], b.Extents[i]
		if !o.nearlyEqual(ea.Min, eb.Min) {
			return nil, fmt.Errorf("%w: %s mins %g and %g differ", ErrXYCompat, names[i], ea.Min, eb.Min)
		}
		if !o.nearlyEqual(ea.Max, eb.Max) {
			return nil, fmt.Errorf("%w: %s maxs %g and %g differ", ErrXYCompat, names[i], ea.Max, eb.Max)
		}
		if !o.nearlyEqual(ea.Step, eb.Step) {
			return nil, fmt.Errorf("%w: %s steps %g and %g differ", ErrXYCompat, names[i], ea.Step, eb.Step)
		}
		if ea.Count != eb.Count {
			return nil, fmt.Errorf("%w: %s counts %d and %d differ", ErrXYCompat, names[i], ea.Count, eb.Count)
		}
	}
	if !o.nearlyEqual(a.Extents[2].Step, b.Extents[2].Step) {
		return nil, fmt.Errorf("%w: z steps %g and %g differ", ErrXYCompat, a.Extents[2].Step, b.Extents[2].Step)
	}

	low, high := a, b
	if b.Extents[2].Min <= a.Extents[2].Min {
		low, high = b, a
	}
	lz, hz := low.Extents[2], high.Extents[2]
	if lz.Max < hz.Min && !o.nearlyEqual(lz.Max, hz.Min) {
		return nil, fmt.Errorf("%w: z ranges [%g, %g] and [%g, %g] neither touch nor overlap",
			ErrXYCompat, lz.Min, lz.Max, hz.Min, hz.Max)
	}
	return low, nil
}

// Merge stacks a and b along z. Every plane of the lower grid is kept and
// the upper grid contributes only the planes above the lower grid's top.
func Merge(a, b *field.Grid) (*field.Grid, error) {
	return Options{}.Merge(a, b)
}

// Merge is the package-level Merge with o's tolerance.
func (o Options) Merge(a, b *field.Grid) (*field.Grid, error) {
	low, err := o.XYCompatible(a, b)
	if err != nil {
		return nil, err
	}
	high := a
	if low == a {
		high = b
	}
	lz, hz := low.Extents[2], high.Extents[2]

	// Position of the low grid's top plane in high-grid plane units.
	offset := (lz.Max - hz.Min) / lz.Step
	k := math.Round(offset)
	if math.Abs(offset-k) > latticeSlop {
		return nil, fmt.Errorf("%w: z lattices offset by %.3g planes", ErrXYCompat, offset-k)
	}
	if k < 0 {
		k = 0
	}
	skip := uint32(k) + 1
	if skip >= hz.Count {
		return nil, fmt.Errorf("%w: [%g, %g] adds no planes above %g", ErrXYCompat, hz.Min, hz.Max, lz.Max)
	}

	out := &field.Grid{Kind: field.Full3D, Extents: low.Extents}
	nz := lz.Count + hz.Count - skip
	out.Extents[2] = field.Range{Min: lz.Min, Max: hz.Max, Step: lz.Step, Count: nz, Active: true}

	plane := uint64(low.Extents[0].Count) * uint64(low.Extents[1].Count) * 3
	out.Samples = make([]float64, 0, plane*uint64(nz))
	out.Samples = append(out.Samples, low.Samples...)
	out.Samples = append(out.Samples, high.Samples[plane*uint64(skip):]...)
	if err := out.Validate(); err != nil {
		return nil, err
	}

	out.Name = OutputName(low.Name, lz.Min, hz.Max)
	out.Provenance = field.Provenance{Model: low.Provenance.Model, Source: filepath.Base(out.Name)}
	logf("merged %s and %s: %d + %d planes -> %d", low.Name, high.Name, lz.Count, hz.Count-skip, nz)
	return out, nil
}

// OutputName replaces the extension of name with "_<zmin>-<zmax>.bin".
func OutputName(name string, zmin, zmax float64) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return fmt.Sprintf("%s_%.2f-%.2f.bin", base, zmin, zmax)
}
