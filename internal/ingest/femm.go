package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/emfield/internal/field"
)

// ParseFEMM reads whitespace-separated "r z Er Ez" rows from a FEMM export
// and builds an axisymmetric grid. Lines starting with '%' or '#' are
// skipped.
func ParseFEMM(r io.Reader, source string, relTol float64) (*field.Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var rows [][4]float64
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
			continue
		}
		tok := strings.Fields(line)
		if len(tok) != 4 {
			return nil, fmt.Errorf("%w: %s line %d has %d values, want 4", field.ErrBadStructure, source, lineNo, len(tok))
		}
		var row [4]float64
		for i, s := range tok {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d column %d: %v", field.ErrBadStructure, source, lineNo, i+1, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	g, err := field.NewFEMM(rows, relTol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	g.Name = source
	g.Provenance = field.Provenance{Model: "FEMM", Source: source}
	return g, nil
}
