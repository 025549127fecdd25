// Package config loads the JSON settings shared by the field tools.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/emfield/internal/fsutil"
)

// DefaultConfigPath is the path to the canonical tool defaults file.
const DefaultConfigPath = "config/tools.defaults.json"

// ToolConfig is the optional settings file accepted by every command via
// -config. Omitted fields fall back to the defaults in the Get* methods,
// so partial files are safe.
type ToolConfig struct {
	// Smoothing
	Passes            *int     `json:"passes,omitempty"`
	GeometryTolerance *float64 `json:"geometry_tolerance,omitempty"` // 0 = x step of the grid

	// Field trees
	MaxChildren *int  `json:"max_children,omitempty"`
	StrictTree  *bool `json:"strict_tree,omitempty"`

	// Ingest and merge
	RepeatTolerance *float64 `json:"repeat_tolerance,omitempty"`
	MergeTolerance  *float64 `json:"merge_tolerance,omitempty"`

	// Outputs
	CatalogPath *string `json:"catalog_path,omitempty"`
	PlotDir     *string `json:"plot_dir,omitempty"`

	// Server
	ListenAddr  *string `json:"listen_addr,omitempty"`
	ReadTimeout *string `json:"read_timeout,omitempty"` // duration string like "10s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyToolConfig returns a ToolConfig with all fields unset.
func EmptyToolConfig() *ToolConfig {
	return &ToolConfig{}
}

// LoadToolConfig loads a ToolConfig from a JSON file on the OS
// filesystem. The file must have a .json extension and be at most 1MB.
func LoadToolConfig(path string) (*ToolConfig, error) {
	return LoadToolConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadToolConfigFS is LoadToolConfig reading through fsys.
func LoadToolConfigFS(fsys fsutil.FileSystem, path string) (*ToolConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyToolConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns an empty config when path is "".
func LoadOrDefault(path string) (*ToolConfig, error) {
	if path == "" {
		return EmptyToolConfig(), nil
	}
	return LoadToolConfig(path)
}

// Validate checks that the configuration values are valid.
func (c *ToolConfig) Validate() error {
	if c.Passes != nil && *c.Passes < 0 {
		return fmt.Errorf("passes must be non-negative, got %d", *c.Passes)
	}
	if c.GeometryTolerance != nil && *c.GeometryTolerance < 0 {
		return fmt.Errorf("geometry_tolerance must be non-negative, got %g", *c.GeometryTolerance)
	}
	if c.MaxChildren != nil && *c.MaxChildren < 1 {
		return fmt.Errorf("max_children must be at least 1, got %d", *c.MaxChildren)
	}
	for name, v := range map[string]*float64{
		"repeat_tolerance": c.RepeatTolerance,
		"merge_tolerance":  c.MergeTolerance,
	} {
		if v != nil && (*v <= 0 || *v >= 1) {
			return fmt.Errorf("%s must be in (0, 1), got %g", name, *v)
		}
	}
	if c.ReadTimeout != nil && *c.ReadTimeout != "" {
		if _, err := time.ParseDuration(*c.ReadTimeout); err != nil {
			return fmt.Errorf("invalid read_timeout '%s': %w", *c.ReadTimeout, err)
		}
	}
	return nil
}

// GetPasses returns the number of smoothing passes or the default.
func (c *ToolConfig) GetPasses() int {
	if c.Passes == nil {
		return 100
	}
	return *c.Passes
}

// GetGeometryTolerance returns the geometry tolerance; 0 means the grid's
// x step.
func (c *ToolConfig) GetGeometryTolerance() float64 {
	if c.GeometryTolerance == nil {
		return 0
	}
	return *c.GeometryTolerance
}

// GetMaxChildren returns the per-node child capacity or the default.
func (c *ToolConfig) GetMaxChildren() int {
	if c.MaxChildren == nil {
		return 20
	}
	return *c.MaxChildren
}

// GetStrictTree reports whether tree descriptors fail on the first bad entry.
func (c *ToolConfig) GetStrictTree() bool {
	if c.StrictTree == nil {
		return false
	}
	return *c.StrictTree
}

// GetRepeatTolerance returns the FEMM/COMSOL repeat tolerance or the default.
func (c *ToolConfig) GetRepeatTolerance() float64 {
	if c.RepeatTolerance == nil {
		return 1e-9
	}
	return *c.RepeatTolerance
}

// GetMergeTolerance returns the z-merge comparison tolerance or the default.
func (c *ToolConfig) GetMergeTolerance() float64 {
	if c.MergeTolerance == nil {
		return 1e-6
	}
	return *c.MergeTolerance
}

// GetCatalogPath returns the sqlite catalogue path; "" disables recording.
func (c *ToolConfig) GetCatalogPath() string {
	if c.CatalogPath == nil {
		return ""
	}
	return *c.CatalogPath
}

// GetPlotDir returns the directory for convergence plots; "" disables them.
func (c *ToolConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}

// GetListenAddr returns the query server listen address or the default.
func (c *ToolConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}

// GetReadTimeout parses and returns the server read timeout.
func (c *ToolConfig) GetReadTimeout() time.Duration {
	if c.ReadTimeout == nil || *c.ReadTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(*c.ReadTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
