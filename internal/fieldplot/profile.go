package fieldplot

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
)

// Valuer is anything that can be probed for a field vector; both
// *field.Grid and *fieldtree.Node qualify.
type Valuer interface {
	ValueAt(p field.Point) (r3.Vec, error)
}

// ProfilePoint is one probe along a line.
type ProfilePoint struct {
	S     float64     `json:"s"` // distance from the start point
	Point field.Point `json:"point"`
	E     r3.Vec      `json:"e"`
	OK    bool        `json:"ok"`
}

// Profile probes v at n evenly spaced points from start to end inclusive.
// Points outside the field are reported with OK false rather than failing
// the whole line; any other error aborts.
func Profile(v Valuer, start, end field.Point, n int) ([]ProfilePoint, error) {
	if n < 2 {
		return nil, fmt.Errorf("profile needs at least 2 points, got %d", n)
	}
	d := r3.Sub(r3.Vec{X: end[0], Y: end[1], Z: end[2]}, r3.Vec{X: start[0], Y: start[1], Z: start[2]})
	length := r3.Norm(d)
	out := make([]ProfilePoint, n)
	for i := range out {
		t := float64(i) / float64(n-1)
		p := field.Point{start[0] + t*d.X, start[1] + t*d.Y, start[2] + t*d.Z}
		e, err := v.ValueAt(p)
		switch {
		case err == nil:
			out[i] = ProfilePoint{S: t * length, Point: p, E: e, OK: true}
		case errors.Is(err, field.ErrOutOfRange), errors.Is(err, fieldtree.ErrNotFound):
			out[i] = ProfilePoint{S: t * length, Point: p}
		default:
			return nil, fmt.Errorf("probe %v: %w", p, err)
		}
	}
	return out, nil
}

// AxisLine returns the endpoints of a line parallel to axis through p,
// running from coordinate from to coordinate to.
func AxisLine(p field.Point, axis int, from, to float64) (field.Point, field.Point, error) {
	if axis < 0 || axis > 2 {
		return field.Point{}, field.Point{}, fmt.Errorf("axis %d out of range", axis)
	}
	start, end := p, p
	start[axis], end[axis] = from, to
	return start, end, nil
}
