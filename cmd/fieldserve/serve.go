package main

import (
	"net/http"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/config"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/server"
)

// buildHandler loads the tree at treePath and returns the logged API
// handler. A non-empty root confines the tree's field files; cat may be
// nil.
func buildHandler(fsys fsutil.FileSystem, treePath, root string, cfg *config.ToolConfig, cat *catalog.Catalog) (http.Handler, error) {
	l := fieldtree.NewLoader(fsys)
	l.MaxChildren = cfg.GetMaxChildren()
	l.Strict = cfg.GetStrictTree()
	l.Root = root
	root, err := l.LoadFile(treePath)
	if err != nil {
		return nil, err
	}
	mux, err := server.NewServer(root, cat).ServeMux()
	if err != nil {
		return nil, err
	}
	return server.LoggingMiddleware(mux), nil
}
