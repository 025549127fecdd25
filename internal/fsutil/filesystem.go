// Package fsutil provides the filesystem abstraction used to load and save
// field files, descriptors and configs, with an in-memory implementation
// for tests.
package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File is an open file that supports the seek the binary field reader
// performs before decoding.
type File interface {
	fs.File
	io.Seeker
}

// FileSystem is the set of operations the loaders and tools need.
// Use OSFileSystem in production and MemoryFileSystem in tests.
type FileSystem interface {
	Open(name string) (File, error)
	// Create creates or truncates the named file.
	Create(name string) (io.WriteCloser, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Stat(name string) (fs.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	// Remove removes the named file or empty directory.
	Remove(name string) error
	// Glob returns the names matching pattern in lexical order.
	Glob(pattern string) ([]string, error)
}

// Resolve joins a relative name onto dir. Absolute names and an empty dir
// leave name unchanged.
func Resolve(dir, name string) string {
	if dir == "" || filepath.IsAbs(name) {
		return filepath.Clean(name)
	}
	return filepath.Join(dir, name)
}

// SwapExt replaces the extension of name with suffix, so
// SwapExt("lens.txt", "_sm.bin") is "lens_sm.bin".
func SwapExt(name, suffix string) string {
	return name[:len(name)-len(filepath.Ext(name))] + suffix
}

// ExpandArgs expands command-line arguments holding glob patterns, for
// shells that pass them through unexpanded. Plain names are kept as given;
// a pattern that matches nothing is an error.
func ExpandArgs(fsys FileSystem, args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?[") {
			out = append(out, arg)
			continue
		}
		matches, err := fsys.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matches no files", arg)
		}
		out = append(out, matches...)
	}
	return out, nil
}

// OSFileSystem implements FileSystem using the os package.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (File, error) { return os.Open(name) }

func (OSFileSystem) Create(name string) (io.WriteCloser, error) { return os.Create(name) }

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

func (OSFileSystem) Remove(name string) error { return os.Remove(name) }

func (OSFileSystem) Glob(pattern string) ([]string, error) { return filepath.Glob(pattern) }
