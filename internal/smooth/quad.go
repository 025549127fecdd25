package smooth

import (
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
)

// symmetryTol is the relative tolerance for matching mirrored extents.
const symmetryTol = 1e-6

// QuadAverage enforces x→-x and y→-y symmetry on a leaf node's field.
func QuadAverage(n *fieldtree.Node) error {
	if !n.IsLeaf() {
		return fmt.Errorf("%w: %q has %d children", ErrNotLeaf, n.Name, len(n.Children))
	}
	if n.Field == nil {
		return fmt.Errorf("%w: %q carries no field", ErrNot4Fold, n.Name)
	}
	return QuadAverageGrid(n.Field)
}

// QuadAverageGrid averages each sample with its three transverse mirror
// images. Ex is made odd in x and even in y, Ey even in x and odd in y,
// and Ez even in both. The x and y extents must match and be centred on 0.
func QuadAverageGrid(g *field.Grid) error {
	if g.Kind != field.Full3D || g.Stride != 0 {
		return fmt.Errorf("%w: %q is %s", ErrNot4Fold, g.Name, g.Kind)
	}
	x, y := g.Extents[0], g.Extents[1]
	same := func(a, b float64) bool {
		return scalar.EqualWithinAbsOrRel(a, b, symmetryTol, symmetryTol)
	}
	if x.Count != y.Count || !same(x.Min, y.Min) || !same(x.Max, y.Max) || !same(x.Min, -x.Max) {
		return fmt.Errorf("%w: x [%g, %g] and y [%g, %g] are not one symmetric range",
			ErrNot4Fold, x.Min, x.Max, y.Min, y.Max)
	}
	if err := g.Validate(); err != nil {
		return err
	}

	nx, ny, nz := int(x.Count), int(y.Count), int(g.Extents[2].Count)
	s := g.Samples
	at := func(ix, iy, iz int) int { return 3 * ((iz*ny+iy)*nx + ix) }
	for iz := 0; iz < nz; iz++ {
		for iy := 0; iy <= (ny-1)/2; iy++ {
			my := ny - 1 - iy
			for ix := 0; ix <= (nx-1)/2; ix++ {
				mx := nx - 1 - ix
				pp, np, pn, nn := at(ix, iy, iz), at(mx, iy, iz), at(ix, my, iz), at(mx, my, iz)

				ax := (s[pp] - s[np] + s[pn] - s[nn]) / 4
				s[pp], s[np], s[pn], s[nn] = ax, -ax, ax, -ax

				ay := (s[pp+1] + s[np+1] - s[pn+1] - s[nn+1]) / 4
				s[pp+1], s[np+1], s[pn+1], s[nn+1] = ay, ay, -ay, -ay

				az := (s[pp+2] + s[np+2] + s[pn+2] + s[nn+2]) / 4
				s[pp+2], s[np+2], s[pn+2], s[nn+2] = az, az, az, az
			}
		}
	}
	return nil
}
