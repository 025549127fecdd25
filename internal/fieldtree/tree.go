// Package fieldtree composes grid fields into a hierarchy in which finer
// child grids answer queries inside their bounds and the parent answers
// everywhere else.
package fieldtree

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/emfield/internal/field"
)

// DefaultMaxChildren is the child capacity given to new nodes.
const DefaultMaxChildren = 20

var (
	// ErrNotFound is returned when no node covers a query point.
	ErrNotFound = errors.New("no field found")
	// ErrOvercapacity is returned when a node already holds MaxChildren.
	ErrOvercapacity = errors.New("too many child fields")
	// ErrNotContained is returned when a child extends outside its parent.
	ErrNotContained = errors.New("child field not contained in parent")
)

// Node is one entry of a field hierarchy. A node without a Field is a
// grouping node whose bounds are the union of its children.
type Node struct {
	Field    *field.Grid
	Name     string
	Children []*Node
	// MaxChildren caps len(Children); zero means unlimited.
	MaxChildren int
}

// NewLeaf wraps g in a node named name.
func NewLeaf(g *field.Grid, name string) *Node {
	return &Node{Field: g, Name: name, MaxChildren: DefaultMaxChildren}
}

// NewGroup returns a grouping node with no field of its own.
func NewGroup(name string) *Node {
	return &Node{Name: name, MaxChildren: DefaultMaxChildren}
}

// HasSamples reports whether the node carries field data.
func (n *Node) HasSamples() bool {
	return n.Field != nil && len(n.Field.Samples) > 0
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Bounds returns the region covered by the node. A grouping node with no
// descendants carrying fields has no bounds.
func (n *Node) Bounds() (field.Box, bool) {
	if n.HasSamples() {
		return n.Field.Bounds(), true
	}
	var (
		out field.Box
		ok  bool
	)
	for _, c := range n.Children {
		b, has := c.Bounds()
		if !has {
			continue
		}
		if !ok {
			out, ok = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, ok
}

// contains is the exact bound test used for dispatch.
func (n *Node) contains(p field.Point) bool {
	b, ok := n.Bounds()
	return ok && b.Contains(p)
}

// softTolerance is the per-axis slack allowed when nesting a child.
func softTolerance(c float64) float64 {
	return math.Max(1e-6, 1e-6*math.Abs(c))
}

// Encloses reports whether box b lies inside the node under the soft
// per-axis tolerance. A node without samples encloses everything.
func (n *Node) Encloses(b field.Box) bool {
	if !n.HasSamples() {
		return true
	}
	pb := n.Field.Bounds()
	for i := 0; i < 3; i++ {
		if b.Min[i] < pb.Min[i]-softTolerance(b.Min[i]) {
			return false
		}
		if b.Max[i] > pb.Max[i]+softTolerance(b.Max[i]) {
			return false
		}
	}
	return true
}

// InsertChild appends child after checking capacity and containment.
func (n *Node) InsertChild(child *Node) error {
	if n.MaxChildren > 0 && len(n.Children) >= n.MaxChildren {
		return fmt.Errorf("%w: %q already holds %d children", ErrOvercapacity, n.Name, len(n.Children))
	}
	if b, ok := child.Bounds(); ok && !n.Encloses(b) {
		pb, _ := n.Bounds()
		return fmt.Errorf("%w: %q spans %v-%v, %q spans %v-%v",
			ErrNotContained, child.Name, b.Min, b.Max, n.Name, pb.Min, pb.Max)
	}
	n.Children = append(n.Children, child)
	return nil
}

// locate returns the most specific node answering p. The first child in
// insertion order whose bounds contain p takes the query; a node only
// answers points inside its own field.
func (n *Node) locate(p field.Point) (*Node, error) {
	for _, c := range n.Children {
		if c.contains(p) {
			return c.locate(p)
		}
	}
	if n.HasSamples() && n.Field.PointInBounds(p) {
		return n, nil
	}
	return nil, fmt.Errorf("%w at (%g, %g, %g)", ErrNotFound, p[0], p[1], p[2])
}

// ValueAt interpolates the field at p from the most specific node.
func (n *Node) ValueAt(p field.Point) (r3.Vec, error) {
	leaf, err := n.locate(p)
	if err != nil {
		return r3.Vec{}, err
	}
	return leaf.Field.ValueAt(p)
}

// SourceNameAt returns the name of the node that would answer p.
func (n *Node) SourceNameAt(p field.Point) (string, error) {
	leaf, err := n.locate(p)
	if err != nil {
		return "", err
	}
	return leaf.Name, nil
}

// Walk visits n and its descendants depth first. Returning an error from
// fn stops the walk.
func (n *Node) Walk(fn func(depth int, node *Node) error) error {
	return n.walk(0, fn)
}

func (n *Node) walk(depth int, fn func(int, *Node) error) error {
	if err := fn(depth, n); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.walk(depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
