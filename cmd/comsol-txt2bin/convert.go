package main

import (
	"fmt"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/ingest"
)

// convert loads one text export and writes it as <base>.bin, recording the
// output in cat when cat is non-nil. It returns the output path.
func convert(fsys fsutil.FileSystem, cat *catalog.Catalog, path string, opts ingest.Options) (string, error) {
	g, err := ingest.LoadFile(fsys, path, opts)
	if err != nil {
		return "", err
	}
	out := fsutil.SwapExt(path, ".bin")
	if err := fieldtree.SaveGrid(fsys, out, g, g.Provenance); err != nil {
		return "", err
	}
	if cat != nil {
		if err := cat.RecordField(catalog.NewFieldRecord(out, g)); err != nil {
			return out, fmt.Errorf("catalogue: %w", err)
		}
	}
	return out, nil
}
