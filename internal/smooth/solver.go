// Package smooth relaxes Full3D fields with a red/black Gauss-Seidel sweep
// and enforces four-fold transverse symmetry.
package smooth

import (
	"errors"
	"fmt"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/geometry"
	"github.com/banshee-data/emfield/internal/monitoring"
)

var (
	// ErrNotLeaf is returned when the target node has children.
	ErrNotLeaf = errors.New("field is not a leaf")
	// ErrNot4Fold is returned when the target is not a suitable Full3D grid.
	ErrNot4Fold = errors.New("field is not a four-fold full-3d grid")
	// ErrBadOptions is returned for a negative pass count or a mask that
	// does not match the grid.
	ErrBadOptions = errors.New("invalid smoothing options")
)

var logf = monitoring.Component("smooth")

// Options controls one relaxation run.
type Options struct {
	// Passes is the number of red/black pass pairs to run.
	Passes int
	// Geometry pins interior points that fall inside any primitive.
	Geometry geometry.List
	// Tolerance widens the geometry test; zero selects the x step.
	Tolerance float64
	// Mask replaces the default boundary mask when set.
	Mask *Mask
	// Progress, if set, is called after every pass.
	Progress func(pass int, sqErr float64)
}

// Result summarises a relaxation run.
type Result struct {
	// Errors holds the summed squared change of each pass.
	Errors []float64
	Fixed  int
	Free   int
	// GeometryFixed counts interior points pinned by the geometry.
	GeometryFixed int
}

// Final returns the error of the last pass, or zero if none ran.
func (r Result) Final() float64 {
	if len(r.Errors) == 0 {
		return 0
	}
	return r.Errors[len(r.Errors)-1]
}

// Weights are the per-axis stencil coefficients for a lattice.
type Weights struct {
	X, Y, Z float64
}

// StencilWeights derives anisotropic weights from the grid steps:
// wa = 1/(1/dx²+1/dy²+1/dz²) and wx = wa/(2dx²) on each axis.
func StencilWeights(dx, dy, dz float64) Weights {
	ix, iy, iz := 1/(dx*dx), 1/(dy*dy), 1/(dz*dz)
	wa := 1 / (ix + iy + iz)
	return Weights{X: wa * ix / 2, Y: wa * iy / 2, Z: wa * iz / 2}
}

// GaussSeidel relaxes the field of a leaf node in place.
func GaussSeidel(n *fieldtree.Node, opts Options) (Result, error) {
	if !n.IsLeaf() {
		return Result{}, fmt.Errorf("%w: %q has %d children", ErrNotLeaf, n.Name, len(n.Children))
	}
	if n.Field == nil {
		return Result{}, fmt.Errorf("%w: %q carries no field", ErrNot4Fold, n.Name)
	}
	return SmoothGrid(n.Field, opts)
}

// SmoothGrid relaxes g in place.
func SmoothGrid(g *field.Grid, opts Options) (Result, error) {
	if g.Kind != field.Full3D || g.Stride != 0 {
		return Result{}, fmt.Errorf("%w: %q is %s with stride %d", ErrNot4Fold, g.Name, g.Kind, g.Stride)
	}
	if err := g.Validate(); err != nil {
		return Result{}, err
	}
	if opts.Passes < 0 {
		return Result{}, fmt.Errorf("%w: %d passes", ErrBadOptions, opts.Passes)
	}

	mask := opts.Mask
	if mask == nil {
		var err error
		if mask, err = NewMask(g); err != nil {
			return Result{}, err
		}
	}
	for i, e := range g.Extents {
		if mask.Dims[i] != int(e.Count) {
			return Result{}, fmt.Errorf("%w: mask axis %d has %d points, grid has %d", ErrBadOptions, i, mask.Dims[i], e.Count)
		}
	}
	if want := g.SampleCount(); uint64(len(mask.Flags)) != want {
		return Result{}, fmt.Errorf("%w: mask holds %d flags, grid has %d points", ErrBadOptions, len(mask.Flags), want)
	}

	var res Result
	if len(opts.Geometry) > 0 {
		tol := opts.Tolerance
		if tol == 0 {
			tol = g.Extents[0].Step
		}
		res.GeometryFixed = mask.ApplyGeometry(g, opts.Geometry, tol)
	}
	res.Fixed, res.Free = mask.Count()

	w := StencilWeights(g.Extents[0].Step, g.Extents[1].Step, g.Extents[2].Step)
	res.Errors = make([]float64, 0, opts.Passes)
	for pass := 1; pass <= opts.Passes; pass++ {
		sq := sweep(g, mask, w, 0) + sweep(g, mask, w, 1)
		res.Errors = append(res.Errors, sq)
		if opts.Progress != nil {
			opts.Progress(pass, sq)
		}
	}
	logf("%q: %d passes, %d free, %d fixed (%d by geometry), final error %g",
		g.Name, opts.Passes, res.Free, res.Fixed, res.GeometryFixed, res.Final())
	return res, nil
}

// sweep updates free interior points with (ix+iy+iz)%2 == colour and
// returns the summed squared change.
func sweep(g *field.Grid, m *Mask, w Weights, colour int) float64 {
	nx, ny, nz := m.Dims[0], m.Dims[1], m.Dims[2]
	sx, sy, sz := 3, 3*nx, 3*nx*ny
	s := g.Samples
	var sq float64
	for iz := 1; iz < nz-1; iz++ {
		for iy := 1; iy < ny-1; iy++ {
			ix := 1
			if (ix+iy+iz)&1 != colour {
				ix++
			}
			for ; ix < nx-1; ix += 2 {
				if m.Flags[m.index(ix, iy, iz)] != Free {
					continue
				}
				base := 3 * ((iz*ny+iy)*nx + ix)
				for c := 0; c < 3; c++ {
					i := base + c
					v := w.X*(s[i+sx]+s[i-sx]) + w.Y*(s[i+sy]+s[i-sy]) + w.Z*(s[i+sz]+s[i-sz])
					d := v - s[i]
					sq += d * d
					s[i] = v
				}
			}
		}
	}
	return sq
}
