package ingest

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fsutil"
)

// ErrCantOpenIn reports an export file that could not be opened.
var ErrCantOpenIn = errors.New("cannot open input")

// Format selects the text export dialect.
type Format int

const (
	// COMSOL is a spreadsheet export with a '%' header.
	COMSOL Format = iota
	// FEMM is a headerless "r z Er Ez" table.
	FEMM
)

// Options controls LoadFile.
type Options struct {
	Format Format
	// Model overrides the model name recorded in the grid's provenance.
	Model string
	// RepeatTolerance is the relative tolerance for repeat counting; zero
	// selects field.DefaultRepeatTolerance.
	RepeatTolerance float64
}

// LoadFile reads one text export from fsys and builds its grid. The
// source recorded in the provenance is path's base name.
func LoadFile(fsys fsutil.FileSystem, path string, opts Options) (*field.Grid, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCantOpenIn, path, err)
	}
	defer f.Close()

	source := filepath.Base(path)
	var g *field.Grid
	switch opts.Format {
	case FEMM:
		g, err = ParseFEMM(f, source, opts.RepeatTolerance)
	default:
		var t *Table
		t, err = ParseCOMSOL(f, source)
		if err != nil {
			return nil, err
		}
		t.RepeatTolerance = opts.RepeatTolerance
		g, err = t.Grid()
	}
	if err != nil {
		return nil, err
	}
	if opts.Model != "" {
		g.Provenance.Model = opts.Model
	}
	return g, nil
}
