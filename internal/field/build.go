package field

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

// DefaultRepeatTolerance is the relative tolerance used when counting
// repeated leading coordinates in FEMM exports.
const DefaultRepeatTolerance = 1e-9

// repeatAbsFloor keeps the repeat test meaningful for coordinates at zero.
const repeatAbsFloor = 1e-12

// ComponentName strips any qualifier before the last '.' from an expression
// name, so "es.Ex" and "Ex" both name the x component.
func ComponentName(expr string) string {
	if i := strings.LastIndexByte(expr, '.'); i >= 0 {
		return expr[i+1:]
	}
	return expr
}

// NewFull3D packs three component columns into a Full3D grid. Columns are
// in x-fastest row order and names must resolve to Ex, Ey and Ez.
func NewFull3D(extents [3]Range, columns [3][]float64, names [3]string) (*Grid, error) {
	for i, e := range extents {
		if !e.Active || e.Count < 2 {
			return nil, fmt.Errorf("%w: full-3d axis %d has %d samples, want at least 2", ErrBadStructure, i, e.Count)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
	}
	want := [3]string{"Ex", "Ey", "Ez"}
	for i := range names {
		if got := ComponentName(names[i]); got != want[i] {
			return nil, fmt.Errorf("%w: expression %d is %q, want %s", ErrBadStructure, i, names[i], want[i])
		}
	}

	g := &Grid{Kind: Full3D, Extents: extents}
	n := g.SampleCount()
	for i, col := range columns {
		if uint64(len(col)) != n {
			return nil, fmt.Errorf("%w: column %s has %d values, want %d", ErrBadStructure, want[i], len(col), n)
		}
	}
	g.Samples = make([]float64, n*3)
	for i := uint64(0); i < n; i++ {
		g.Samples[i*3] = columns[0][i]
		g.Samples[i*3+1] = columns[1][i]
		g.Samples[i*3+2] = columns[2][i]
	}
	return g, nil
}

// NewAxisymmetric2D packs a radial and an axial component column into an
// axisymmetric grid. Exactly one of axes 0 and 1 must be inactive; the
// other is the radial axis. Both transverse axes must start at 0.
func NewAxisymmetric2D(extents [3]Range, columns [2][]float64, names [2]string) (*Grid, error) {
	inactive := -1
	for i, e := range extents {
		if e.Active {
			if err := e.Validate(); err != nil {
				return nil, fmt.Errorf("axis %d: %w", i, err)
			}
			continue
		}
		if inactive >= 0 {
			return nil, fmt.Errorf("%w: axes %d and %d both inactive", ErrBadStructure, inactive, i)
		}
		inactive = i
	}
	if inactive != 0 && inactive != 1 {
		return nil, fmt.Errorf("%w: axisymmetric grid needs axis 0 or 1 inactive, got %d", ErrBadStructure, inactive)
	}
	radial := 1 - inactive
	if extents[0].Min != 0 || extents[1].Min != 0 {
		return nil, fmt.Errorf("%w: transverse minima are %g and %g, want 0",
			ErrBadStructure, extents[0].Min, extents[1].Min)
	}

	axisNames := [2]string{"Ex", "Ey"}
	want := [2]string{axisNames[radial], "Ez"}
	for i := range names {
		if got := ComponentName(names[i]); got != want[i] {
			return nil, fmt.Errorf("%w: expression %d is %q, want %s", ErrBadStructure, i, names[i], want[i])
		}
	}

	g := &Grid{Kind: Axisymmetric2D, Extents: extents}
	g.Extents[inactive] = Range{Count: 1}
	g.Stride = g.Extents[radial].Count
	n := g.SampleCount()
	for i, col := range columns {
		if uint64(len(col)) != n {
			return nil, fmt.Errorf("%w: column %s has %d values, want %d", ErrBadStructure, want[i], len(col), n)
		}
	}
	g.Samples = make([]float64, n*2)
	for i := uint64(0); i < n; i++ {
		g.Samples[i*2] = columns[0][i]
		g.Samples[i*2+1] = columns[1][i]
	}
	return g, nil
}

// NewFEMM builds an axisymmetric grid from FEMM "r z Er Ez" rows with z
// varying fastest. The grid shape is inferred from the run length of the
// leading r value; relTol <= 0 selects DefaultRepeatTolerance.
func NewFEMM(rows [][4]float64, relTol float64) (*Grid, error) {
	if relTol <= 0 {
		relTol = DefaultRepeatTolerance
	}
	same := func(a, b float64) bool {
		return scalar.EqualWithinAbsOrRel(a, b, repeatAbsFloor, relTol)
	}
	if len(rows) < 4 {
		return nil, fmt.Errorf("%w: %d rows, need at least a 2x2 grid", ErrBadStructure, len(rows))
	}

	run := 1
	for run < len(rows) && same(rows[run][0], rows[0][0]) {
		run++
	}
	if run < 2 || len(rows)%run != 0 {
		return nil, fmt.Errorf("%w: %d rows not divisible into runs of %d", ErrBadStructure, len(rows), run)
	}
	nr := len(rows) / run
	if nr < 2 {
		return nil, fmt.Errorf("%w: only one radial column", ErrBadStructure)
	}

	rmin, rmax := math.Inf(1), math.Inf(-1)
	zmin, zmax := math.Inf(1), math.Inf(-1)
	for i, row := range rows {
		col := i / run
		if !same(row[0], rows[col*run][0]) {
			return nil, fmt.Errorf("%w: row %d has r=%g inside run starting r=%g", ErrBadStructure, i, row[0], rows[col*run][0])
		}
		rmin, rmax = math.Min(rmin, row[0]), math.Max(rmax, row[0])
		zmin, zmax = math.Min(zmin, row[1]), math.Max(zmax, row[1])
	}
	if !same(rmin, 0) {
		return nil, fmt.Errorf("%w: radial minimum %g, want 0", ErrBadStructure, rmin)
	}

	g := &Grid{Kind: Axisymmetric2D, Stride: uint32(nr)}
	g.Extents[0] = Range{Count: 1}
	g.Extents[1] = NewRange(0, rmax, uint32(nr))
	g.Extents[2] = NewRange(zmin, zmax, uint32(run))
	for i := 1; i < 3; i++ {
		if err := g.Extents[i].Validate(); err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
	}
	g.Samples = make([]float64, 2*len(rows))
	for col := 0; col < nr; col++ {
		for row := 0; row < run; row++ {
			src := rows[col*run+row]
			dst := 2 * (row*nr + col)
			g.Samples[dst] = src[2]
			g.Samples[dst+1] = src[3]
		}
	}
	return g, nil
}
