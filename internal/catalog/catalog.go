// Package catalog records field files and smoothing runs in a sqlite
// database so that long smoothing campaigns can be inspected later.
package catalog

import (
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/monitoring"
	"github.com/banshee-data/emfield/internal/timeutil"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("catalog entry not found")

// Catalog wraps the sqlite connection.
type Catalog struct {
	*sql.DB
	path string
	// Clock stamps records that arrive without a time.
	Clock timeutil.Clock
}

// Open opens (creating if needed) the catalogue at path and migrates it
// to the latest schema.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	c := &Catalog{DB: db, path: path, Clock: timeutil.RealClock{}}
	if err := c.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) now() time.Time {
	return timeutil.OrReal(c.Clock).Now()
}

// OpenIfSet opens the catalogue at path, or returns nil when path is
// empty so tools can treat cataloguing as optional.
func OpenIfSet(path string) (*Catalog, error) {
	if path == "" {
		return nil, nil
	}
	return Open(path)
}

// FieldRecord describes one binary field file.
type FieldRecord struct {
	Path        string    `json:"path"`
	Kind        string    `json:"kind"`
	Counts      [3]uint32 `json:"counts"`
	Bounds      field.Box `json:"bounds"`
	Model       string    `json:"model"`
	Source      string    `json:"source"`
	SampleCount uint64    `json:"sample_count"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// NewFieldRecord summarises g as stored at path.
func NewFieldRecord(path string, g *field.Grid) FieldRecord {
	rec := FieldRecord{
		Path:        path,
		Kind:        g.Kind.String(),
		Bounds:      g.Bounds(),
		Model:       g.Provenance.Model,
		Source:      g.Provenance.Source,
		SampleCount: g.SampleCount(),
	}
	for i, e := range g.Extents {
		rec.Counts[i] = e.Count
	}
	return rec
}

// RecordField inserts or replaces the entry for rec.Path.
func (c *Catalog) RecordField(rec FieldRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = c.now()
	}
	_, err := c.Exec(`
		INSERT INTO field_files (
			path, kind, count_x, count_y, count_z,
			min_x, min_y, min_z, max_x, max_y, max_z,
			model, source, sample_count, recorded_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind = excluded.kind,
			count_x = excluded.count_x,
			count_y = excluded.count_y,
			count_z = excluded.count_z,
			min_x = excluded.min_x,
			min_y = excluded.min_y,
			min_z = excluded.min_z,
			max_x = excluded.max_x,
			max_y = excluded.max_y,
			max_z = excluded.max_z,
			model = excluded.model,
			source = excluded.source,
			sample_count = excluded.sample_count,
			recorded_unix_nanos = excluded.recorded_unix_nanos`,
		rec.Path, rec.Kind, rec.Counts[0], rec.Counts[1], rec.Counts[2],
		rec.Bounds.Min[0], rec.Bounds.Min[1], rec.Bounds.Min[2],
		rec.Bounds.Max[0], rec.Bounds.Max[1], rec.Bounds.Max[2],
		rec.Model, rec.Source, int64(rec.SampleCount), rec.RecordedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record field %s: %w", rec.Path, err)
	}
	return nil
}

const fieldColumns = `path, kind, count_x, count_y, count_z,
	min_x, min_y, min_z, max_x, max_y, max_z,
	model, source, sample_count, recorded_unix_nanos`

type scanner interface {
	Scan(dest ...any) error
}

func scanField(s scanner) (FieldRecord, error) {
	var (
		rec     FieldRecord
		samples int64
		nanos   int64
	)
	err := s.Scan(&rec.Path, &rec.Kind, &rec.Counts[0], &rec.Counts[1], &rec.Counts[2],
		&rec.Bounds.Min[0], &rec.Bounds.Min[1], &rec.Bounds.Min[2],
		&rec.Bounds.Max[0], &rec.Bounds.Max[1], &rec.Bounds.Max[2],
		&rec.Model, &rec.Source, &samples, &nanos)
	if err != nil {
		return FieldRecord{}, err
	}
	rec.SampleCount = uint64(samples)
	rec.RecordedAt = time.Unix(0, nanos)
	return rec, nil
}

// FieldByPath returns the entry for path or ErrNotFound.
func (c *Catalog) FieldByPath(path string) (FieldRecord, error) {
	row := c.QueryRow(`SELECT `+fieldColumns+` FROM field_files WHERE path = ?`, path)
	rec, err := scanField(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FieldRecord{}, fmt.Errorf("%w: field %s", ErrNotFound, path)
	}
	if err != nil {
		return FieldRecord{}, fmt.Errorf("field %s: %w", path, err)
	}
	return rec, nil
}

// ListFields returns every recorded field ordered by path.
func (c *Catalog) ListFields() ([]FieldRecord, error) {
	rows, err := c.Query(`SELECT ` + fieldColumns + ` FROM field_files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FieldRecord
	for rows.Next() {
		rec, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Run is one smoothing run over a field file.
type Run struct {
	ID            uuid.UUID     `json:"id"`
	FieldPath     string        `json:"field_path"`
	OutputPath    string        `json:"output_path"`
	Passes        int           `json:"passes"`
	Fixed         int           `json:"fixed"`
	Free          int           `json:"free"`
	GeometryFixed int           `json:"geometry_fixed"`
	FinalError    float64       `json:"final_error"`
	PassErrors    []float64     `json:"pass_errors"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}

// RecordRun stores run, assigning a new ID when it has none, and returns
// the ID used.
func (c *Catalog) RecordRun(run Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = c.now()
	}
	errs := run.PassErrors
	if errs == nil {
		errs = []float64{}
	}
	errJSON, err := json.Marshal(errs)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode pass errors: %w", err)
	}
	_, err = c.Exec(`
		INSERT INTO smoothing_runs (
			run_id, field_path, output_path, passes, fixed_points, free_points,
			geometry_fixed, final_error, pass_errors_json, started_unix_nanos, duration_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.FieldPath, run.OutputPath, run.Passes, run.Fixed, run.Free,
		run.GeometryFixed, run.FinalError, string(errJSON), run.StartedAt.UnixNano(), int64(run.Duration),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("record run for %s: %w", run.FieldPath, err)
	}
	return run.ID, nil
}

// RunsForField returns the runs recorded for path, oldest first.
func (c *Catalog) RunsForField(path string) ([]Run, error) {
	rows, err := c.Query(`
		SELECT run_id, field_path, output_path, passes, fixed_points, free_points,
			geometry_fixed, final_error, pass_errors_json, started_unix_nanos, duration_nanos
		FROM smoothing_runs WHERE field_path = ? ORDER BY started_unix_nanos, run_id`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			id       string
			errJSON  string
			started  int64
			duration int64
		)
		if err := rows.Scan(&id, &r.FieldPath, &r.OutputPath, &r.Passes, &r.Fixed, &r.Free,
			&r.GeometryFixed, &r.FinalError, &errJSON, &started, &duration); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(errJSON), &r.PassErrors); err != nil {
			return nil, fmt.Errorf("run %s pass errors: %w", id, err)
		}
		r.StartedAt = time.Unix(0, started)
		r.Duration = time.Duration(duration)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AttachAdminRoutes mounts the tsweb debug index on mux with a tailsql
// console over the catalogue and a gzip backup download.
func (c *Catalog) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+filepath.Base(c.path), c.DB, &tailsql.DBOptions{
		Label: "Field catalogue",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	debug.Handle("backup", "Create and download a backup of the catalogue now", http.HandlerFunc(c.serveBackup))
	return nil
}

func (c *Catalog) serveBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "catalog-backup")
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			monitoring.Logf("Failed to remove backup dir: %v", err)
		}
	}()

	name := fmt.Sprintf("backup-%d.db", c.now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := c.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}
	f, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")
	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		monitoring.Logf("Failed to write backup: %v", err)
	}
}
