package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/monitoring"
	"github.com/banshee-data/emfield/internal/server"
)

// sampler answers a point with the field there and the name of the node
// that supplied it.
type sampler interface {
	Sample(ctx context.Context, p field.Point) (r3.Vec, string, error)
}

type treeSampler struct {
	root *fieldtree.Node
}

func (s treeSampler) Sample(_ context.Context, p field.Point) (r3.Vec, string, error) {
	name, err := s.root.SourceNameAt(p)
	if err != nil {
		return r3.Vec{}, "", err
	}
	e, err := s.root.ValueAt(p)
	return e, name, err
}

type remoteSampler struct {
	client *server.Client
}

func (s remoteSampler) Sample(ctx context.Context, p field.Point) (r3.Vec, string, error) {
	resp, err := s.client.Field(ctx, p)
	if err != nil {
		return r3.Vec{}, "", err
	}
	return r3.Vec{X: resp.E.X, Y: resp.E.Y, Z: resp.E.Z}, resp.Source, nil
}

func outside(err error) bool {
	return errors.Is(err, fieldtree.ErrNotFound) || errors.Is(err, field.ErrOutOfRange)
}

// probe answers each "x y z" line of r on w. Points no field covers print
// "outside"; malformed lines are logged and skipped. It returns the number
// of points answered.
func probe(ctx context.Context, s sampler, r io.Reader, w io.Writer) (int, error) {
	sc := bufio.NewScanner(r)
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	n, lineNo := 0, 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parsePoint(line)
		if err != nil {
			monitoring.Logf("line %d: %v", lineNo, err)
			continue
		}
		e, name, err := s.Sample(ctx, p)
		switch {
		case outside(err):
			fmt.Fprintf(bw, "%g %g %g outside\n", p[0], p[1], p[2])
		case err != nil:
			return n, fmt.Errorf("line %d: %w", lineNo, err)
		default:
			fmt.Fprintf(bw, "%g %g %g %g %g %g %s\n", p[0], p[1], p[2], e.X, e.Y, e.Z, name)
		}
		n++
	}
	return n, sc.Err()
}

func parsePoint(line string) (field.Point, error) {
	tok := strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	var p field.Point
	if len(tok) != 3 {
		return p, fmt.Errorf("want 3 coordinates, got %d", len(tok))
	}
	for i, t := range tok {
		v, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return p, err
		}
		p[i] = v
	}
	return p, nil
}
