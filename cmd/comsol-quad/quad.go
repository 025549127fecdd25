package main

import (
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/smooth"
)

// quadFile averages one field file over its transverse mirror images and
// writes <base>_q.bin.
func quadFile(fsys fsutil.FileSystem, path string) (string, error) {
	g, err := fieldtree.LoadGrid(fsys, path)
	if err != nil {
		return "", err
	}
	if err := smooth.QuadAverage(fieldtree.NewLeaf(g, path)); err != nil {
		return "", err
	}
	out := fsutil.SwapExt(path, "_q.bin")
	if err := fieldtree.SaveGrid(fsys, out, g, g.Provenance); err != nil {
		return "", err
	}
	return out, nil
}
