package fieldtree

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/testutil"
)

func box(lo, hi float64) (field.Point, field.Point) {
	return field.Point{lo, lo, lo}, field.Point{hi, hi, hi}
}

func uniform(t *testing.T, lo, hi float64, v float64) *field.Grid {
	t.Helper()
	a, b := box(lo, hi)
	return testutil.UniformGrid(t, a, b, [3]uint32{3, 3, 3}, [3]float64{v, v, v})
}

func TestDispatchByName(t *testing.T) {
	t.Parallel()

	parent := NewLeaf(uniform(t, 0, 10, 1), "coarse.bin")
	require.NoError(t, parent.InsertChild(NewLeaf(uniform(t, 2, 4, 2), "fine.bin")))

	name, err := parent.SourceNameAt(field.Point{3, 3, 3})
	require.NoError(t, err)
	assert.Equal(t, "fine.bin", name)

	name, err = parent.SourceNameAt(field.Point{8, 8, 8})
	require.NoError(t, err)
	assert.Equal(t, "coarse.bin", name)

	v, err := parent.ValueAt(field.Point{3, 3, 3})
	require.NoError(t, err)
	assert.InDelta(t, 2, v.X, 1e-12)

	v, err = parent.ValueAt(field.Point{8, 8, 8})
	require.NoError(t, err)
	assert.InDelta(t, 1, v.Z, 1e-12)

	_, err = parent.ValueAt(field.Point{11, 0, 0})
	assert.ErrorIs(t, err, ErrNotFound)

	for _, p := range []field.Point{{50, 50, 50}, {-1, 5, 5}, {math.NaN(), 5, 5}} {
		_, err = parent.SourceNameAt(p)
		assert.ErrorIs(t, err, ErrNotFound, "%v", p)
	}

	// A subtree only answers inside its own field.
	fine := parent.Children[0]
	_, err = fine.SourceNameAt(field.Point{8, 8, 8})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFirstInsertedChildWins(t *testing.T) {
	t.Parallel()

	parent := NewLeaf(uniform(t, 0, 10, 0), "root")
	require.NoError(t, parent.InsertChild(NewLeaf(uniform(t, 1, 5, 1), "a")))
	require.NoError(t, parent.InsertChild(NewLeaf(uniform(t, 3, 7, 2), "b")))

	name, err := parent.SourceNameAt(field.Point{4, 4, 4})
	require.NoError(t, err)
	assert.Equal(t, "a", name)

	name, err = parent.SourceNameAt(field.Point{6, 6, 6})
	require.NoError(t, err)
	assert.Equal(t, "b", name)
}

func TestNestedDispatch(t *testing.T) {
	t.Parallel()

	root := NewLeaf(uniform(t, 0, 10, 0), "root")
	mid := NewLeaf(uniform(t, 2, 8, 1), "mid")
	require.NoError(t, mid.InsertChild(NewLeaf(uniform(t, 4, 6, 2), "inner")))
	require.NoError(t, root.InsertChild(mid))

	for _, tt := range []struct {
		p    field.Point
		want string
	}{
		{field.Point{5, 5, 5}, "inner"},
		{field.Point{3, 3, 3}, "mid"},
		{field.Point{1, 1, 1}, "root"},
	} {
		got, err := root.SourceNameAt(tt.p)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "point %v", tt.p)
	}
}

func TestSoftContainment(t *testing.T) {
	t.Parallel()

	parent := func() *Node { return NewLeaf(uniform(t, 0, 10, 0), "p") }

	tests := []struct {
		name   string
		lo, hi float64
		ok     bool
	}{
		{"exact match", 0, 10, true},
		{"within tolerance", -5e-7, 10 + 5e-6, true},
		{"beyond tolerance low", -1e-5, 5, false},
		{"beyond tolerance high", 1, 10.001, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parent().InsertChild(NewLeaf(uniform(t, tt.lo, tt.hi, 1), "c"))
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrNotContained)
			}
		})
	}
}

func TestGroupAcceptsAnything(t *testing.T) {
	t.Parallel()

	g := NewGroup("group")
	require.NoError(t, g.InsertChild(NewLeaf(uniform(t, 0, 1, 1), "a")))
	require.NoError(t, g.InsertChild(NewLeaf(uniform(t, 5, 6, 2), "b")))

	b, ok := g.Bounds()
	require.True(t, ok)
	assert.Equal(t, field.Point{0, 0, 0}, b.Min)
	assert.Equal(t, field.Point{6, 6, 6}, b.Max)

	name, err := g.SourceNameAt(field.Point{5.5, 5.5, 5.5})
	require.NoError(t, err)
	assert.Equal(t, "b", name)

	// Inside the union but in neither child.
	_, err = g.ValueAt(field.Point{3, 3, 3})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, ok = NewGroup("empty").Bounds()
	assert.False(t, ok)
}

func TestOvercapacity(t *testing.T) {
	t.Parallel()

	parent := NewLeaf(uniform(t, 0, 10, 0), "p")
	parent.MaxChildren = 2
	require.NoError(t, parent.InsertChild(NewLeaf(uniform(t, 1, 2, 1), "a")))
	require.NoError(t, parent.InsertChild(NewLeaf(uniform(t, 3, 4, 1), "b")))
	err := parent.InsertChild(NewLeaf(uniform(t, 5, 6, 1), "c"))
	assert.ErrorIs(t, err, ErrOvercapacity)

	parent.MaxChildren = 0
	assert.NoError(t, parent.InsertChild(NewLeaf(uniform(t, 5, 6, 1), "c")))
	assert.Len(t, parent.Children, 3)
}

func TestWalk(t *testing.T) {
	t.Parallel()

	root := NewGroup("root")
	require.NoError(t, root.InsertChild(NewLeaf(uniform(t, 0, 1, 0), "a")))
	sub := NewGroup("sub")
	require.NoError(t, sub.InsertChild(NewLeaf(uniform(t, 0, 1, 0), "b")))
	require.NoError(t, root.InsertChild(sub))

	var seen []string
	var depths []int
	require.NoError(t, root.Walk(func(depth int, n *Node) error {
		seen = append(seen, n.Name)
		depths = append(depths, depth)
		return nil
	}))
	assert.Equal(t, []string{"root", "a", "sub", "b"}, seen)
	assert.Equal(t, []int{0, 1, 1, 2}, depths)
}

func TestAxisymmetricChild(t *testing.T) {
	t.Parallel()

	parent := NewLeaf(uniform(t, -5, 5, 0), "box")
	slice := testutil.AxisymmetricGrid(t, 2, -1, 1, 3, 3, func(r, z float64) [2]float64 { return [2]float64{1, 0} })
	require.NoError(t, parent.InsertChild(NewLeaf(slice, "slice")))

	v, err := parent.ValueAt(field.Point{0, 1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1, v.Y, 1e-12)
}
