// Package geometry describes the analytic shapes that pin interior grid
// points during smoothing.
package geometry

import (
	"github.com/banshee-data/emfield/internal/field"
)

// Primitive is a closed set of analytic shapes with a containment test.
type Primitive interface {
	// Contains reports whether p lies inside the shape, widened by tol.
	Contains(p field.Point, tol float64) bool
	// Potential is the boundary value the shape was declared with.
	Potential() float64
	primitive()
}

// Axes returns the (transverse0, transverse1, longitudinal) index triple for
// a longitudinal axis selector. The triple is right-handed.
func Axes(axis int) (t0, t1, long int) {
	switch axis {
	case 0:
		return 1, 2, 0
	case 1:
		return 2, 0, 1
	default:
		return 0, 1, 2
	}
}

// radial2 returns the squared transverse distance of p from the shape axis,
// which passes through min, and whether p lies within the axial extent.
func radial2(axis int, min, max, p field.Point) (float64, bool) {
	t0, t1, long := Axes(axis)
	if p[long] < min[long] || p[long] > max[long] {
		return 0, false
	}
	d0 := p[t0] - min[t0]
	d1 := p[t1] - min[t1]
	return d0*d0 + d1*d1, true
}

// InteriorCylinder is a solid cylinder along Axis between Min and Max.
type InteriorCylinder struct {
	Axis    int
	Min     field.Point
	Max     field.Point
	Radius2 float64
	Volts   float64
}

// Contains implements Primitive.
func (c InteriorCylinder) Contains(p field.Point, tol float64) bool {
	r2, ok := radial2(c.Axis, c.Min, c.Max, p)
	return ok && r2 < c.Radius2+tol*tol
}

// Potential implements Primitive.
func (c InteriorCylinder) Potential() float64 { return c.Volts }

func (InteriorCylinder) primitive() {}

// Torus is an annular shell along Axis between Min and Max.
type Torus struct {
	Axis   int
	Min    field.Point
	Max    field.Point
	Inner2 float64
	Outer2 float64
	Volts  float64
}

// Contains implements Primitive.
func (t Torus) Contains(p field.Point, tol float64) bool {
	r2, ok := radial2(t.Axis, t.Min, t.Max, p)
	tol2 := tol * tol
	return ok && r2 > t.Inner2-tol2 && r2 < t.Outer2+tol2
}

// Potential implements Primitive.
func (t Torus) Potential() float64 { return t.Volts }

func (Torus) primitive() {}

// List is an ordered set of primitives.
type List []Primitive

// Contains reports whether any primitive contains p.
func (l List) Contains(p field.Point, tol float64) bool {
	for _, prim := range l {
		if prim.Contains(p, tol) {
			return true
		}
	}
	return false
}
