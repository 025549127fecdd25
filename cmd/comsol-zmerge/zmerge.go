package main

import (
	"fmt"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/merge"
)

// mergeFiles loads both files, merges them and writes the result. The
// output path is derived from the path of the lower grid.
func mergeFiles(fsys fsutil.FileSystem, cat *catalog.Catalog, pathA, pathB string, tol float64) (string, error) {
	a, err := fieldtree.LoadGrid(fsys, pathA)
	if err != nil {
		return "", err
	}
	b, err := fieldtree.LoadGrid(fsys, pathB)
	if err != nil {
		return "", err
	}
	a.Name, b.Name = pathA, pathB

	out, err := merge.Options{Tolerance: tol}.Merge(a, b)
	if err != nil {
		return "", err
	}
	if err := fieldtree.SaveGrid(fsys, out.Name, out, out.Provenance); err != nil {
		return "", err
	}
	if cat != nil {
		if err := cat.RecordField(catalog.NewFieldRecord(out.Name, out)); err != nil {
			return out.Name, fmt.Errorf("catalogue: %w", err)
		}
	}
	return out.Name, nil
}
