// Package security confines descriptor-supplied paths and makes safe file
// names from field names.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathEscape reports a path that resolves outside its allowed root.
var ErrPathEscape = errors.New("path escapes root")

// maxFilenameLen bounds names produced by SanitizeFilename.
const maxFilenameLen = 128

// WithinDirectory checks that path stays inside root once both are cleaned.
// Relative paths are compared as given, so the check works on any
// FileSystem, not only the OS one. Symlinks are not followed.
func WithinDirectory(path, root string) error {
	p, r := filepath.Clean(path), filepath.Clean(root)
	if filepath.IsAbs(p) != filepath.IsAbs(r) {
		var err error
		if p, err = filepath.Abs(p); err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		if r, err = filepath.Abs(r); err != nil {
			return fmt.Errorf("resolve %s: %w", root, err)
		}
	}
	rel, err := filepath.Rel(r, p)
	if err != nil {
		return fmt.Errorf("%w: %s is not under %s", ErrPathEscape, path, root)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s is not under %s", ErrPathEscape, path, root)
	}
	return nil
}

// SanitizeFilename makes a file name from an arbitrary string. Runs of
// characters other than ASCII letters, digits, '.', '_' and '-' become a
// single '_', leading and trailing '.' and '_' are trimmed, and the result
// is capped at 128 bytes. An empty result is "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pendingUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '_' || r == '-'):
			b.WriteRune(r)
			pendingUnderscore = false
		case !pendingUnderscore:
			b.WriteByte('_')
			pendingUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
