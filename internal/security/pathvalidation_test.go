package security

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithinDirectory(t *testing.T) {
	tmp := t.TempDir()

	tests := []struct {
		name    string
		path    string
		root    string
		wantErr bool
	}{
		{"relative inside", "fields/lens.bin", "fields", false},
		{"nested", "fields/sub/../lens.bin", "fields", false},
		{"root itself", "fields", "fields", false},
		{"parent escape", "fields/../secret.bin", "fields", true},
		{"sibling prefix", "fields2/lens.bin", "fields", true},
		{"absolute inside", filepath.Join(tmp, "a.bin"), tmp, false},
		{"absolute outside", "/etc/passwd", tmp, true},
		{"dot root", "lens.bin", ".", false},
		{"dot root escape", "../lens.bin", ".", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WithinDirectory(tt.path, tt.root)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPathEscape)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"lens.bin":          "lens.bin",
		"run/lens_sm.bin":   "run_lens_sm.bin",
		"../../etc/passwd":  "etc_passwd",
		"a  b\tc":           "a_b_c",
		"":                  "unknown",
		"___":               "unknown",
		"électrode-1":       "lectrode-1",
		"field (v2).bin":    "field_v2_.bin",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), "SanitizeFilename(%q)", in)
	}
}
