package fieldtree

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/monitoring"
	"github.com/banshee-data/emfield/internal/security"
)

var (
	// ErrMalformed reports a descriptor grammar error.
	ErrMalformed = errors.New("malformed field descriptor")
	// ErrCantOpenIn reports an input file that could not be opened.
	ErrCantOpenIn = errors.New("cannot open input")
	// ErrCantOpenOut reports an output file that could not be created.
	ErrCantOpenOut = errors.New("cannot open output")
)

// LoadGrid opens and decodes one binary field file.
func LoadGrid(fsys fsutil.FileSystem, path string) (*field.Grid, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCantOpenIn, path, err)
	}
	defer f.Close()
	g, err := field.ReadBinary(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// SaveGrid writes g to path as a binary field file, recording prov in the
// header. Missing parent directories are created and a partly written
// file is removed.
func SaveGrid(fsys fsutil.FileSystem, path string, g *field.Grid, prov field.Provenance) error {
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCantOpenOut, path, err)
	}
	w, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCantOpenOut, path, err)
	}
	if err := field.WriteBinary(w, g, prov); err != nil {
		w.Close()
		_ = fsys.Remove(path)
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		_ = fsys.Remove(path)
		return fmt.Errorf("%w: %s: %v", field.ErrBadWrite, path, err)
	}
	return nil
}

// Loader builds a tree from a descriptor:
//
//	fields <dir>      directory for relative field names
//	field <file>      leaf loaded from a binary field file
//	cfield [file]     group, optionally with its own field
//	  ...
//	end [file]        closes the group; the tag must repeat the cfield name
//
// Tokens are separated by whitespace, commas or tabs; '#' starts a comment
// line.
type Loader struct {
	FS fsutil.FileSystem
	// Dir is the starting directory for relative names.
	Dir string
	// MaxChildren is applied to every node; zero means unlimited.
	MaxChildren int
	// Strict turns field load and insertion failures into errors instead
	// of logging and skipping the entry.
	Strict bool
	// Root, when set, confines every field file to that directory. A path
	// escaping it fails the load even when the loader is lenient.
	Root string
	Logf   func(format string, v ...interface{})
}

// NewLoader returns a lenient loader over fsys with the default capacity.
func NewLoader(fsys fsutil.FileSystem) *Loader {
	return &Loader{FS: fsys, MaxChildren: DefaultMaxChildren, Logf: monitoring.Component("fieldtree")}
}

type parser struct {
	l      *Loader
	sc     *bufio.Scanner
	lineNo int
	dir    string
}

// LoadFile reads the descriptor at path.
func (l *Loader) LoadFile(path string) (*Node, error) {
	f, err := l.FS.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCantOpenIn, path, err)
	}
	defer f.Close()
	root, err := l.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// Load parses a descriptor from r. A single top-level entry is returned
// as the root; several are gathered under an unnamed grouping node.
func (l *Loader) Load(r io.Reader) (*Node, error) {
	p := &parser{l: l, sc: bufio.NewScanner(r), dir: l.Dir}
	top := l.group("")
	top.MaxChildren = 0
	if err := p.block(top, "", false); err != nil {
		return nil, err
	}
	if err := p.sc.Err(); err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	switch len(top.Children) {
	case 0:
		return nil, fmt.Errorf("%w: no fields loaded", ErrMalformed)
	case 1:
		return top.Children[0], nil
	}
	return top, nil
}

func (l *Loader) group(name string) *Node {
	n := NewGroup(name)
	n.MaxChildren = l.MaxChildren
	return n
}

func (l *Loader) logf(format string, v ...interface{}) {
	if l.Logf != nil {
		l.Logf(format, v...)
	}
}

func tokens(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ',' || r == '\r' || r == '\n'
	})
}

func (p *parser) malformed(format string, v ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformed, p.lineNo, fmt.Sprintf(format, v...))
}

// soft logs err and carries on unless the loader is strict.
func (p *parser) soft(err error) error {
	if p.l.Strict || errors.Is(err, security.ErrPathEscape) {
		return fmt.Errorf("line %d: %w", p.lineNo, err)
	}
	p.l.logf("line %d: skipping: %v", p.lineNo, err)
	return nil
}

func (p *parser) leaf(name string) (*Node, error) {
	path := fsutil.Resolve(p.dir, name)
	if p.l.Root != "" {
		if err := security.WithinDirectory(path, p.l.Root); err != nil {
			return nil, err
		}
	}
	g, err := LoadGrid(p.l.FS, path)
	if err != nil {
		return nil, err
	}
	g.Name = name
	n := NewLeaf(g, name)
	n.MaxChildren = p.l.MaxChildren
	return n, nil
}

func (p *parser) insert(parent, child *Node) error {
	if err := parent.InsertChild(child); err != nil {
		return p.soft(err)
	}
	return nil
}

// block parses entries into parent until the matching end tag, or EOF at
// top level.
func (p *parser) block(parent *Node, tag string, nested bool) error {
	for p.sc.Scan() {
		p.lineNo++
		line := strings.TrimSpace(p.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tok := tokens(line)
		if len(tok) == 0 {
			continue
		}
		switch verb := strings.ToLower(tok[0]); verb {
		case "fields":
			if len(tok) != 2 {
				return p.malformed("fields takes one directory")
			}
			p.dir = fsutil.Resolve(p.dir, tok[1])
		case "field":
			if len(tok) != 2 {
				return p.malformed("field takes one file name")
			}
			n, err := p.leaf(tok[1])
			if err != nil {
				if err := p.soft(err); err != nil {
					return err
				}
				continue
			}
			if err := p.insert(parent, n); err != nil {
				return err
			}
		case "cfield":
			if len(tok) > 2 {
				return p.malformed("cfield takes at most one file name")
			}
			name := ""
			if len(tok) == 2 {
				name = tok[1]
			}
			g := p.l.group(name)
			if name != "" {
				n, err := p.leaf(name)
				if err != nil {
					if err := p.soft(err); err != nil {
						return err
					}
				} else {
					g = n
				}
			}
			if err := p.block(g, name, true); err != nil {
				return err
			}
			if err := p.insert(parent, g); err != nil {
				return err
			}
		case "end":
			if !nested {
				return p.malformed("end without cfield")
			}
			name := ""
			if len(tok) >= 2 {
				name = tok[1]
			}
			if name != tag {
				return p.malformed("end %q does not match cfield %q", name, tag)
			}
			return nil
		default:
			return p.malformed("unknown directive %q", tok[0])
		}
	}
	if nested {
		return p.malformed("missing end for cfield %q", tag)
	}
	return nil
}
