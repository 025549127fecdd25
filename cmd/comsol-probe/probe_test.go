package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/monitoring"
	"github.com/banshee-data/emfield/internal/server"
	"github.com/banshee-data/emfield/internal/testutil"
)

func testTree(t *testing.T) *fieldtree.Node {
	t.Helper()
	monitoring.SetLogger(nil)
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteGrid(t, mfs, "fields/coarse.bin",
		testutil.UniformGrid(t, field.Point{0, 0, 0}, field.Point{2, 2, 2}, [3]uint32{3, 3, 3}, [3]float64{0, 0, 1}))
	testutil.WriteGrid(t, mfs, "fields/fine.bin",
		testutil.UniformGrid(t, field.Point{0, 0, 0}, field.Point{1, 1, 1}, [3]uint32{2, 2, 2}, [3]float64{5, 0, 0}))
	require.NoError(t, mfs.WriteFile("tree.txt", []byte("fields fields\ncfield coarse.bin\n  field fine.bin\nend coarse.bin\n"), 0o644))

	root, err := fieldtree.NewLoader(mfs).LoadFile("tree.txt")
	require.NoError(t, err)
	return root
}

const points = `# x y z
0.5 0.5 0.5
1.5, 1.5, 1.5
9 9 9
not a point
`

func TestProbeLocal(t *testing.T) {
	var out bytes.Buffer
	n, err := probe(context.Background(), treeSampler{root: testTree(t)}, strings.NewReader(points), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "0.5 0.5 0.5 5 0 0 fine.bin\n1.5 1.5 1.5 0 0 1 coarse.bin\n9 9 9 outside\n", out.String())
}

func TestProbeRemote(t *testing.T) {
	mux, err := server.NewServer(testTree(t), nil).ServeMux()
	require.NoError(t, err)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var out bytes.Buffer
	s := remoteSampler{client: server.NewClient(srv.URL, nil)}
	n, err := probe(context.Background(), s, strings.NewReader(points), &out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "0.5 0.5 0.5 5 0 0 fine.bin\n1.5 1.5 1.5 0 0 1 coarse.bin\n9 9 9 outside\n", out.String())
}

func TestProbeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := probe(ctx, treeSampler{root: testTree(t)}, strings.NewReader(points), &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParsePoint(t *testing.T) {
	p, err := parsePoint("1\t-2,3e-1")
	require.NoError(t, err)
	assert.Equal(t, field.Point{1, -2, 0.3}, p)

	_, err = parsePoint("1 2")
	assert.Error(t, err)
	_, err = parsePoint("1 2 z")
	assert.Error(t, err)
}
