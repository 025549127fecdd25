package main

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/config"
	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/monitoring"
	"github.com/banshee-data/emfield/internal/security"
	"github.com/banshee-data/emfield/internal/server"
	"github.com/banshee-data/emfield/internal/testutil"
)

func treeFS(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	monitoring.SetLogger(nil)
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteGrid(t, mfs, "lens.bin",
		testutil.UniformGrid(t, field.Point{-1, -1, 0}, field.Point{1, 1, 2}, [3]uint32{3, 3, 3}, [3]float64{0, 0, 7}))
	require.NoError(t, mfs.WriteFile("tree.txt", []byte("field lens.bin\n"), 0o644))
	return mfs
}

func TestBuildHandler(t *testing.T) {
	h, err := buildHandler(treeFS(t), "tree.txt", "", config.EmptyToolConfig(), nil)
	require.NoError(t, err)

	w := testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/field?x=0&y=0.5&z=1"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var resp server.FieldResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "lens.bin", resp.Source)
	assert.InDelta(t, 7, resp.E.Z, 1e-12)
	assert.InDelta(t, 7, resp.Magnitude, 1e-12)

	w = testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/fields"))
	testutil.AssertStatusCode(t, w.Code, http.StatusNotFound)
}

func TestBuildHandlerWithCatalogue(t *testing.T) {
	mfs := treeFS(t)
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "cat.db"))
	require.NoError(t, err)
	defer cat.Close()

	g, err := fieldtree.LoadGrid(mfs, "lens.bin")
	require.NoError(t, err)
	require.NoError(t, cat.RecordField(catalog.NewFieldRecord("lens.bin", g)))

	h, err := buildHandler(mfs, "tree.txt", "", config.EmptyToolConfig(), cat)
	require.NoError(t, err)

	w := testutil.NewTestRecorder()
	h.ServeHTTP(w, testutil.NewTestRequest(http.MethodGet, "/api/fields"))
	testutil.AssertStatusCode(t, w.Code, http.StatusOK)

	var recs []catalog.FieldRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "lens.bin", recs[0].Path)
}

func TestBuildHandlerMissingTree(t *testing.T) {
	_, err := buildHandler(fsutil.NewMemoryFileSystem(), "absent.txt", "", config.EmptyToolConfig(), nil)
	assert.ErrorIs(t, err, fieldtree.ErrCantOpenIn)
}

func TestBuildHandlerConfined(t *testing.T) {
	mfs := treeFS(t)

	_, err := buildHandler(mfs, "tree.txt", ".", config.EmptyToolConfig(), nil)
	assert.NoError(t, err)

	_, err = buildHandler(mfs, "tree.txt", "fields", config.EmptyToolConfig(), nil)
	assert.ErrorIs(t, err, security.ErrPathEscape)
}
