package smooth

import (
	"fmt"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/geometry"
)

// PointType classifies a lattice point for relaxation.
type PointType uint8

const (
	// Fixed points keep their value and only feed neighbours.
	Fixed PointType = 0
	// Free points are relaxed.
	Free PointType = 1
)

// Mask holds one PointType per lattice point, x fastest.
type Mask struct {
	Dims  [3]int
	Flags []PointType
}

// NewMask sizes a mask to g with every face of the lattice fixed and the
// interior free.
func NewMask(g *field.Grid) (*Mask, error) {
	if g.Kind != field.Full3D {
		return nil, fmt.Errorf("%w: mask needs a full-3d grid, got %s", ErrNot4Fold, g.Kind)
	}
	m := &Mask{}
	for i, e := range g.Extents {
		m.Dims[i] = int(e.Count)
	}
	m.Flags = make([]PointType, m.Dims[0]*m.Dims[1]*m.Dims[2])
	nx, ny, nz := m.Dims[0], m.Dims[1], m.Dims[2]
	for iz := 0; iz < nz; iz++ {
		for iy := 0; iy < ny; iy++ {
			for ix := 0; ix < nx; ix++ {
				if ix == 0 || iy == 0 || iz == 0 || ix == nx-1 || iy == ny-1 || iz == nz-1 {
					continue
				}
				m.Flags[m.index(ix, iy, iz)] = Free
			}
		}
	}
	return m, nil
}

func (m *Mask) index(ix, iy, iz int) int {
	return (iz*m.Dims[1]+iy)*m.Dims[0] + ix
}

// At returns the classification of (ix, iy, iz).
func (m *Mask) At(ix, iy, iz int) PointType {
	return m.Flags[m.index(ix, iy, iz)]
}

// Count returns the number of fixed and free points.
func (m *Mask) Count() (fixed, free int) {
	for _, f := range m.Flags {
		if f == Free {
			free++
		} else {
			fixed++
		}
	}
	return fixed, free
}

// ApplyGeometry fixes every free point of g lying inside any primitive and
// returns how many points changed.
func (m *Mask) ApplyGeometry(g *field.Grid, prims geometry.List, tol float64) int {
	if len(prims) == 0 {
		return 0
	}
	changed := 0
	for iz := 0; iz < m.Dims[2]; iz++ {
		z := g.Coordinate(2, uint32(iz))
		for iy := 0; iy < m.Dims[1]; iy++ {
			y := g.Coordinate(1, uint32(iy))
			for ix := 0; ix < m.Dims[0]; ix++ {
				i := m.index(ix, iy, iz)
				if m.Flags[i] != Free {
					continue
				}
				if prims.Contains(field.Point{g.Coordinate(0, uint32(ix)), y, z}, tol) {
					m.Flags[i] = Fixed
					changed++
				}
			}
		}
	}
	return changed
}
