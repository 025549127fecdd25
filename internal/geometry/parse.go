package geometry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/monitoring"
)

// Header is the required first token of a geometry descriptor.
const Header = "BCGeom"

// ErrBadGeom reports an unreadable or malformed geometry descriptor.
var ErrBadGeom = errors.New("bad geometry")

var logf = monitoring.Component("geometry")

func fields(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '\r'
	})
}

// Parse reads a geometry descriptor:
//
//	BCGeom
//	# comment
//	icyl  xmin ymin zmin xmax ymax zmax radius potential
//	torus xmin ymin zmin xmax ymax zmax inner outer [potential]
//	end
//
// Unknown commands are logged and skipped.
func Parse(r io.Reader) (List, error) {
	sc := bufio.NewScanner(r)
	lineNo := 0
	sawHeader := false
	var list List
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if !sawHeader {
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, Header) {
				return nil, fmt.Errorf("%w: line %d: missing %s header", ErrBadGeom, lineNo, Header)
			}
			sawHeader = true
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tok := fields(line)
		if len(tok) == 0 {
			continue
		}
		switch strings.ToLower(tok[0]) {
		case "icyl":
			c, err := parseCylinder(tok[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			list = append(list, c)
		case "torus":
			t, err := parseTorus(tok[1:])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			list = append(list, t)
		case "end":
			return list, nil
		default:
			logf("line %d: skipping unknown command %q", lineNo, tok[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadGeom, err)
	}
	if !sawHeader {
		return nil, fmt.Errorf("%w: empty descriptor", ErrBadGeom)
	}
	return list, nil
}

func parseFloats(cmd string, tok []string, least, most int) ([]float64, error) {
	if len(tok) < least || len(tok) > most {
		if least == most {
			return nil, fmt.Errorf("%w: %s takes %d values, got %d", ErrBadGeom, cmd, least, len(tok))
		}
		return nil, fmt.Errorf("%w: %s takes %d to %d values, got %d", ErrBadGeom, cmd, least, most, len(tok))
	}
	out := make([]float64, len(tok))
	for i, s := range tok {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s value %d: %v", ErrBadGeom, cmd, i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// extent splits the six corner values and finds the single axis along
// which the corners differ.
func extent(cmd string, v []float64) (axis int, lo, hi field.Point, err error) {
	copy(lo[:], v[0:3])
	copy(hi[:], v[3:6])
	axis = -1
	for i := 0; i < 3; i++ {
		if lo[i] == hi[i] {
			continue
		}
		if lo[i] > hi[i] {
			return 0, lo, hi, fmt.Errorf("%w: %s axis %d has min %g > max %g", ErrBadGeom, cmd, i, lo[i], hi[i])
		}
		if axis >= 0 {
			return 0, lo, hi, fmt.Errorf("%w: %s extends along axes %d and %d", ErrBadGeom, cmd, axis, i)
		}
		axis = i
	}
	if axis < 0 {
		return 0, lo, hi, fmt.Errorf("%w: %s has zero length", ErrBadGeom, cmd)
	}
	return axis, lo, hi, nil
}

func parseCylinder(tok []string) (InteriorCylinder, error) {
	v, err := parseFloats("icyl", tok, 8, 8)
	if err != nil {
		return InteriorCylinder{}, err
	}
	axis, lo, hi, err := extent("icyl", v)
	if err != nil {
		return InteriorCylinder{}, err
	}
	if v[6] < 0 {
		return InteriorCylinder{}, fmt.Errorf("%w: icyl radius %g is negative", ErrBadGeom, v[6])
	}
	return InteriorCylinder{Axis: axis, Min: lo, Max: hi, Radius2: v[6] * v[6], Volts: v[7]}, nil
}

func parseTorus(tok []string) (Torus, error) {
	v, err := parseFloats("torus", tok, 8, 9)
	if err != nil {
		return Torus{}, err
	}
	axis, lo, hi, err := extent("torus", v)
	if err != nil {
		return Torus{}, err
	}
	inner, outer := math.Abs(v[6]), math.Abs(v[7])
	if inner >= outer {
		return Torus{}, fmt.Errorf("%w: torus inner radius %g not below outer %g", ErrBadGeom, inner, outer)
	}
	t := Torus{Axis: axis, Min: lo, Max: hi, Inner2: inner * inner, Outer2: outer * outer}
	if len(v) == 9 {
		t.Volts = v[8]
	}
	return t, nil
}
