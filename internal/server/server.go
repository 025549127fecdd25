// Package server exposes a loaded field tree over HTTP: point queries,
// bounds, catalogue listings and profile charts.
package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/httputil"
	"github.com/banshee-data/emfield/internal/monitoring"
)

// ANSI escape codes for request logging
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server answers queries against an immutable field tree. The catalogue
// is optional.
type Server struct {
	tree    *fieldtree.Node
	catalog *catalog.Catalog
}

// NewServer wraps tree; cat may be nil.
func NewServer(tree *fieldtree.Node, cat *catalog.Catalog) *Server {
	return &Server{tree: tree, catalog: cat}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the API routes. When a catalogue is attached its debug
// console is mounted under /debug/.
func (s *Server) ServeMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/field", s.handleField)
	mux.HandleFunc("/api/source", s.handleSource)
	mux.HandleFunc("/api/bounds", s.handleBounds)
	mux.HandleFunc("/api/fields", s.handleFields)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/chart/profile", s.handleProfileChart)
	if s.catalog != nil {
		if err := s.catalog.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

// Vector is the JSON form of a field value.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// FieldResponse answers /api/field.
type FieldResponse struct {
	Point     field.Point `json:"point"`
	E         Vector      `json:"e"`
	Magnitude float64     `json:"magnitude"`
	Source    string      `json:"source"`
}

// SourceResponse answers /api/source.
type SourceResponse struct {
	Point  field.Point `json:"point"`
	Source string      `json:"source"`
}

// NodeBounds is one node of the tree in /api/bounds.
type NodeBounds struct {
	Name   string     `json:"name"`
	Depth  int        `json:"depth"`
	Kind   string     `json:"kind,omitempty"`
	Bounds *field.Box `json:"bounds,omitempty"`
}

// BoundsResponse answers /api/bounds.
type BoundsResponse struct {
	Bounds *field.Box   `json:"bounds,omitempty"`
	Nodes  []NodeBounds `json:"nodes"`
}

func queryPoint(r *http.Request) (field.Point, error) {
	q := r.URL.Query()
	var p field.Point
	for i, key := range []string{"x", "y", "z"} {
		v, err := httputil.QueryFloat(q, key, 0, true)
		if err != nil {
			return p, err
		}
		p[i] = v
	}
	return p, nil
}

// writeLookupError maps query misses to 404 and everything else to 500.
func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, fieldtree.ErrNotFound) || errors.Is(err, field.ErrOutOfRange) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}


func (s *Server) handleField(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	p, err := queryPoint(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	name, err := s.tree.SourceNameAt(p)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	e, err := s.tree.ValueAt(p)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.WriteJSONOK(w, FieldResponse{
		Point:     p,
		E:         Vector{X: e.X, Y: e.Y, Z: e.Z},
		Magnitude: math.Sqrt(e.X*e.X + e.Y*e.Y + e.Z*e.Z),
		Source:    name,
	})
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	p, err := queryPoint(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	name, err := s.tree.SourceNameAt(p)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	httputil.WriteJSONOK(w, SourceResponse{Point: p, Source: name})
}

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	var resp BoundsResponse
	if b, ok := s.tree.Bounds(); ok {
		resp.Bounds = &b
	}
	resp.Nodes = []NodeBounds{}
	_ = s.tree.Walk(func(depth int, n *fieldtree.Node) error {
		nb := NodeBounds{Name: n.Name, Depth: depth}
		if n.Field != nil {
			nb.Kind = n.Field.Kind.String()
		}
		if b, ok := n.Bounds(); ok {
			nb.Bounds = &b
		}
		resp.Nodes = append(resp.Nodes, nb)
		return nil
	})
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handleFields(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.catalog == nil {
		httputil.NotFound(w, "no catalogue attached")
		return
	}
	recs, err := s.catalog.ListFields()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if recs == nil {
		recs = []catalog.FieldRecord{}
	}
	httputil.WriteJSONOK(w, recs)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.catalog == nil {
		httputil.NotFound(w, "no catalogue attached")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		httputil.BadRequest(w, `missing parameter "path"`)
		return
	}
	runs, err := s.catalog.RunsForField(path)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []catalog.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, readTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
	}
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
