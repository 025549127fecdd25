package server

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/emfield/internal/fieldplot"
	"github.com/banshee-data/emfield/internal/httputil"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// maxProfilePoints bounds the n parameter of /chart/profile.
const maxProfilePoints = 5000

// handleProfileChart renders Ex, Ey and Ez along a line parallel to axis
// through (x, y, z), from coordinate from to coordinate to.
func (s *Server) handleProfileChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	p, err := queryPoint(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	axis, err := httputil.QueryInt(q, "axis", 2)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	n, err := httputil.QueryInt(q, "n", 101)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if n < 2 || n > maxProfilePoints {
		httputil.BadRequest(w, fmt.Sprintf("n must be between 2 and %d", maxProfilePoints))
		return
	}
	from, err := httputil.QueryFloat(q, "from", 0, true)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	to, err := httputil.QueryFloat(q, "to", 0, true)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	start, end, err := fieldplot.AxisLine(p, axis, from, to)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	pts, err := fieldplot.Profile(s.tree, start, end, n)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	axisNames := [3]string{"x", "y", "z"}
	xs := make([]string, len(pts))
	comps := [3][]opts.LineData{}
	for i, pt := range pts {
		xs[i] = fmt.Sprintf("%.4g", pt.Point[axis])
		vals := [3]float64{pt.E.X, pt.E.Y, pt.E.Z}
		for c := range comps {
			if pt.OK {
				comps[c] = append(comps[c], opts.LineData{Value: vals[c]})
			} else {
				comps[c] = append(comps[c], opts.LineData{Value: "-"})
			}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Field profile", Width: "100%", Height: "720px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Field along %s", axisNames[axis]),
			Subtitle: fmt.Sprintf("through (%g, %g, %g), %d points", p[0], p[1], p[2], n),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: axisNames[axis], NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "V/m"}),
	)
	line.SetXAxis(xs).
		AddSeries("Ex", comps[0]).
		AddSeries("Ey", comps[1]).
		AddSeries("Ez", comps[2])

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	httputil.WriteHTML(w, buf.Bytes())
}
