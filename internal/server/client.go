package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/httputil"
)

// Client queries a remote field server.
type Client struct {
	base string
	http httputil.HTTPClient
}

// NewClient returns a client for the server at base (e.g.
// "http://localhost:8080"). A nil hc uses http.DefaultClient.
func NewClient(base string, hc httputil.HTTPClient) *Client {
	if hc == nil {
		hc = httputil.NewStandardClient(nil)
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

// Field fetches the field value at p.
func (c *Client) Field(ctx context.Context, p field.Point) (FieldResponse, error) {
	var out FieldResponse
	err := c.get(ctx, "/api/field", pointQuery(p), &out)
	return out, err
}

// Bounds fetches the tree bounds.
func (c *Client) Bounds(ctx context.Context) (BoundsResponse, error) {
	var out BoundsResponse
	err := c.get(ctx, "/api/bounds", nil, &out)
	return out, err
}

func pointQuery(p field.Point) url.Values {
	q := url.Values{}
	for i, key := range []string{"x", "y", "z"} {
		q.Set(key, strconv.FormatFloat(p[i], 'g', -1, 64))
	}
	return q
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			msg = fmt.Sprintf("%d %s", resp.StatusCode, e.Error)
		}
		// The server answers 404 for points no field covers.
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("GET %s: %w: %s", path, fieldtree.ErrNotFound, msg)
		}
		return fmt.Errorf("GET %s: %s", path, msg)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("GET %s: decode: %w", path, err)
	}
	return nil
}
