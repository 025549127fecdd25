package main

import (
	"fmt"
	"log"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fieldplot"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/geometry"
	"github.com/banshee-data/emfield/internal/smooth"
	"github.com/banshee-data/emfield/internal/timeutil"
)

// smoothJob carries the settings shared by every file of one invocation.
// plotter and cat are optional.
type smoothJob struct {
	fsys      fsutil.FileSystem
	geometry  geometry.List
	passes    int
	tolerance float64
	plotter   *fieldplot.ConvergencePlotter
	cat       *catalog.Catalog
	clock     timeutil.Clock
}

func loadGeometry(fsys fsutil.FileSystem, path string) (geometry.List, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", fieldtree.ErrCantOpenIn, path, err)
	}
	defer f.Close()
	prims, err := geometry.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prims, nil
}

// run smooths one field file and writes <base>_sm.bin beside it.
func (j *smoothJob) run(path string) (string, smooth.Result, error) {
	g, err := fieldtree.LoadGrid(j.fsys, path)
	if err != nil {
		return "", smooth.Result{}, err
	}
	g.Name = path

	opts := smooth.Options{
		Passes:    j.passes,
		Geometry:  j.geometry,
		Tolerance: j.tolerance,
	}
	if j.plotter != nil {
		opts.Progress = j.plotter.Recorder(path)
	}

	clock := timeutil.OrReal(j.clock)
	started := clock.Now()
	res, err := smooth.SmoothGrid(g, opts)
	if err != nil {
		return "", res, err
	}
	elapsed := clock.Since(started)

	out := fsutil.SwapExt(path, "_sm.bin")
	if err := fieldtree.SaveGrid(j.fsys, out, g, g.Provenance); err != nil {
		return "", res, err
	}

	if j.plotter != nil {
		if file, err := j.saveAxisProfile(out, g); err != nil {
			log.Printf("%s: profile plot: %v", out, err)
		} else {
			log.Printf("wrote %s", file)
		}
	}

	if j.cat != nil {
		if err := j.cat.RecordField(catalog.NewFieldRecord(out, g)); err != nil {
			return out, res, fmt.Errorf("catalogue: %w", err)
		}
		_, err := j.cat.RecordRun(catalog.Run{
			FieldPath:     path,
			OutputPath:    out,
			Passes:        j.passes,
			Fixed:         res.Fixed,
			Free:          res.Free,
			GeometryFixed: res.GeometryFixed,
			FinalError:    res.Final(),
			PassErrors:    res.Errors,
			StartedAt:     started,
			Duration:      elapsed,
		})
		if err != nil {
			return out, res, fmt.Errorf("catalogue: %w", err)
		}
	}
	return out, res, nil
}

// profileSamples is the number of points plotted along the axis profile.
const profileSamples = 201

// saveAxisProfile plots the smoothed field along the z line through the
// transverse centre of g.
func (j *smoothJob) saveAxisProfile(name string, g *field.Grid) (string, error) {
	b := g.Bounds()
	centre := field.Point{(b.Min[0] + b.Max[0]) / 2, (b.Min[1] + b.Max[1]) / 2, 0}
	start, end, err := fieldplot.AxisLine(centre, 2, b.Min[2], b.Max[2])
	if err != nil {
		return "", err
	}
	pts, err := fieldplot.Profile(g, start, end, profileSamples)
	if err != nil {
		return "", err
	}
	file := j.plotter.ProfilePath(name)
	return file, fieldplot.SaveProfile(file, name+" on axis", pts)
}
