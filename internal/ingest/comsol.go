// Package ingest reads finite-element text exports and turns them into
// grid fields.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/banshee-data/emfield/internal/field"
)

var (
	// ErrIncompleteHeader reports a COMSOL header missing a required key.
	ErrIncompleteHeader = errors.New("incomplete export header")
	// ErrNameAlloc reports a column-name line that does not match the
	// declared dimension and expression counts.
	ErrNameAlloc = errors.New("bad column names")
)

const maxLine = 1 << 20

// Table is a parsed COMSOL text export: header metadata, column names and
// one column per dimension and expression.
type Table struct {
	Model       string
	Source      string
	Dimension   int
	Nodes       int
	Expressions int
	DimNames    []string
	ExprNames   []string
	// Columns holds Dimension coordinate columns then Expressions value
	// columns, one entry per data row.
	Columns [][]float64
	// Axes maps each dimension column to a grid axis.
	Axes []int
	// Extents is filled by Analyse.
	Extents [3]field.Range
	// RepeatTolerance is the relative tolerance for repeat counting; zero
	// selects field.DefaultRepeatTolerance.
	RepeatTolerance float64
}

// headerValue returns the text after "Key:" in a '%' line.
func headerValue(line, key string) (string, bool) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "%"))
	if !strings.HasPrefix(body, key+":") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(body, key+":")), true
}

// ParseCOMSOL reads a COMSOL spreadsheet export. source names the input
// for provenance and error messages.
func ParseCOMSOL(r io.Reader, source string) (*Table, error) {
	t := &Table{Source: source}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		lastComment string
		lineNo      int
		gotDim      bool
		gotNodes    bool
		gotExpr     bool
		inData      bool
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "%") {
			if inData {
				return nil, fmt.Errorf("%w: %s line %d: header after data", field.ErrBadStructure, source, lineNo)
			}
			lastComment = line
			if v, ok := headerValue(line, "Model"); ok {
				t.Model = v
			}
			if v, ok := headerValue(line, "Dimension"); ok {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("%w: %s line %d: dimension %q", ErrIncompleteHeader, source, lineNo, v)
				}
				t.Dimension, gotDim = n, true
			}
			if v, ok := headerValue(line, "Nodes"); ok {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("%w: %s line %d: nodes %q", ErrIncompleteHeader, source, lineNo, v)
				}
				t.Nodes, gotNodes = n, true
			}
			if v, ok := headerValue(line, "Expressions"); ok {
				n, err := strconv.Atoi(v)
				if err != nil {
					return nil, fmt.Errorf("%w: %s line %d: expressions %q", ErrIncompleteHeader, source, lineNo, v)
				}
				t.Expressions, gotExpr = n, true
			}
			continue
		}

		if !inData {
			if !gotDim || !gotNodes || !gotExpr {
				return nil, fmt.Errorf("%w: %s needs Dimension, Nodes and Expressions before data", ErrIncompleteHeader, source)
			}
			if t.Dimension < 2 || t.Dimension > 3 || t.Expressions < 1 {
				return nil, fmt.Errorf("%w: %s declares %d dimensions and %d expressions",
					field.ErrBadStructure, source, t.Dimension, t.Expressions)
			}
			if err := t.setNames(lastComment); err != nil {
				return nil, fmt.Errorf("%s: %w", source, err)
			}
			t.Columns = make([][]float64, t.Dimension+t.Expressions)
			for i := range t.Columns {
				t.Columns[i] = make([]float64, 0, t.Nodes)
			}
			inData = true
		}

		tok := strings.Fields(line)
		if len(tok) != len(t.Columns) {
			return nil, fmt.Errorf("%w: %s line %d has %d values, want %d",
				field.ErrBadStructure, source, lineNo, len(tok), len(t.Columns))
		}
		for i, s := range tok {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d column %d: %v", field.ErrBadStructure, source, lineNo, i+1, err)
			}
			t.Columns[i] = append(t.Columns[i], v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if !inData {
		if !gotDim || !gotNodes || !gotExpr {
			return nil, fmt.Errorf("%w: %s", ErrIncompleteHeader, source)
		}
		return nil, fmt.Errorf("%w: %s has no data rows", field.ErrBadStructure, source)
	}
	if rows := len(t.Columns[0]); rows != t.Nodes {
		return nil, fmt.Errorf("%w: %s has %d rows, header declares %d nodes", field.ErrBadStructure, source, rows, t.Nodes)
	}
	return t, nil
}

// setNames splits the column-name comment into dimension and expression
// names. Unit tokens in parentheses are dropped.
func (t *Table) setNames(line string) error {
	var names []string
	for _, tok := range strings.Fields(strings.TrimPrefix(line, "%")) {
		if strings.HasPrefix(tok, "(") {
			continue
		}
		names = append(names, tok)
	}
	if len(names) != t.Dimension+t.Expressions {
		return fmt.Errorf("%w: %q names %d columns, want %d dimensions and %d expressions",
			ErrNameAlloc, line, len(names), t.Dimension, t.Expressions)
	}
	t.DimNames = names[:t.Dimension]
	t.ExprNames = names[t.Dimension:]

	t.Axes = make([]int, t.Dimension)
	if t.Dimension == 3 {
		t.Axes = []int{0, 1, 2}
		return nil
	}
	for i, n := range t.DimNames {
		switch strings.ToLower(n) {
		case "x", "r":
			t.Axes[i] = 0
		case "y":
			t.Axes[i] = 1
		case "z":
			t.Axes[i] = 2
		default:
			return fmt.Errorf("%w: unknown dimension %q", ErrNameAlloc, n)
		}
	}
	if t.Axes[0] == t.Axes[1] {
		return fmt.Errorf("%w: dimensions %v share an axis", ErrNameAlloc, t.DimNames)
	}
	return nil
}

// Analyse derives per-axis extents from the coordinate columns. The first
// coordinate varies fastest; each active dimension's sample count is found
// from how often its leading value repeats.
func (t *Table) Analyse() error {
	tol := t.RepeatTolerance
	if tol <= 0 {
		tol = field.DefaultRepeatTolerance
	}
	same := func(a, b float64) bool { return scalar.EqualWithinAbsOrRel(a, b, 1e-12, tol) }

	for i := range t.Extents {
		t.Extents[i] = field.Range{Count: 1}
	}
	nPoint := t.Nodes
	for d := t.Dimension - 1; d >= 0; d-- {
		col := t.Columns[d]
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range col {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		axis := t.Axes[d]
		if same(lo, hi) {
			t.Extents[axis] = field.Range{Min: lo, Max: lo, Count: 1}
			continue
		}
		rep := 1
		for rep < len(col) && same(col[rep], col[0]) {
			rep++
		}
		if rep > nPoint || nPoint%rep != 0 {
			return fmt.Errorf("%w: %s dimension %s repeats %d times, not a divisor of %d",
				field.ErrBadStructure, t.Source, t.DimNames[d], rep, nPoint)
		}
		count := nPoint / rep
		if count < 2 {
			return fmt.Errorf("%w: %s dimension %s has one sample", field.ErrBadStructure, t.Source, t.DimNames[d])
		}
		t.Extents[axis] = field.NewRange(lo, hi, uint32(count))
		nPoint = rep
	}
	if nPoint != 1 {
		return fmt.Errorf("%w: %s leaves %d points per cell after shape analysis", field.ErrBadStructure, t.Source, nPoint)
	}
	return nil
}

// Grid analyses the table and packs it into a Full3D or Axisymmetric2D
// grid according to the number of active axes.
func (t *Table) Grid() (*field.Grid, error) {
	if err := t.Analyse(); err != nil {
		return nil, err
	}
	active := 0
	for _, e := range t.Extents {
		if e.Active {
			active++
		}
	}
	exprs := t.Columns[t.Dimension:]
	var (
		g   *field.Grid
		err error
	)
	switch active {
	case 3:
		if len(exprs) != 3 {
			return nil, fmt.Errorf("%w: %s has %d expressions, full-3d needs 3", field.ErrBadStructure, t.Source, len(exprs))
		}
		g, err = field.NewFull3D(t.Extents,
			[3][]float64{exprs[0], exprs[1], exprs[2]},
			[3]string{t.ExprNames[0], t.ExprNames[1], t.ExprNames[2]})
	case 2:
		if len(exprs) != 2 {
			return nil, fmt.Errorf("%w: %s has %d expressions, axisymmetric needs 2", field.ErrBadStructure, t.Source, len(exprs))
		}
		g, err = field.NewAxisymmetric2D(t.Extents,
			[2][]float64{exprs[0], exprs[1]},
			[2]string{t.ExprNames[0], t.ExprNames[1]})
	default:
		return nil, fmt.Errorf("%w: %s has %d active axes", field.ErrBadStructure, t.Source, active)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Source, err)
	}
	g.Name = t.Source
	g.Provenance = field.Provenance{Model: t.Model, Source: t.Source}
	return g, nil
}
