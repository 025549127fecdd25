// Command comsol-smooth relaxes Full3D binary field files with a red/black
// Gauss-Seidel sweep. Each input <base>.bin is written as <base>_sm.bin.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/config"
	"github.com/banshee-data/emfield/internal/fieldplot"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/version"
)

var (
	geomPath    = flag.String("g", "", "BCGeom geometry file pinning electrode interiors")
	passes      = flag.Int("n", 0, "Number of red/black passes (0 uses the config value)")
	configPath  = flag.String("config", "", "Path to a tools JSON config (defaults apply when empty)")
	plotDir     = flag.String("plots", "", "Directory for a convergence plot (overrides config)")
	catalogPath = flag.String("catalog", "", "sqlite catalogue to record runs in (overrides config)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] field.bin...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("comsol-smooth"))
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	fsys := fsutil.OSFileSystem{}

	job := &smoothJob{
		fsys:      fsys,
		passes:    cfg.GetPasses(),
		tolerance: cfg.GetGeometryTolerance(),
	}
	if *passes > 0 {
		job.passes = *passes
	}
	if *geomPath != "" {
		job.geometry, err = loadGeometry(fsys, *geomPath)
		if err != nil {
			log.Fatalf("geometry: %v", err)
		}
		log.Printf("loaded %d primitives from %s", len(job.geometry), *geomPath)
	}

	dir := *plotDir
	if dir == "" {
		dir = cfg.GetPlotDir()
	}
	if dir != "" {
		if job.plotter, err = fieldplot.NewConvergencePlotter(dir); err != nil {
			log.Fatalf("plots: %v", err)
		}
	}

	catPath := *catalogPath
	if catPath == "" {
		catPath = cfg.GetCatalogPath()
	}
	if job.cat, err = catalog.OpenIfSet(catPath); err != nil {
		log.Fatalf("catalogue %s: %v", catPath, err)
	}
	if job.cat != nil {
		defer job.cat.Close()
	}

	failed := 0
	files, err := fsutil.ExpandArgs(fsutil.OSFileSystem{}, flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}
	for _, path := range files {
		out, res, err := job.run(path)
		if err != nil {
			log.Printf("%s: %v", path, err)
			failed++
			continue
		}
		log.Printf("wrote %s: %d passes, final error %g", out, len(res.Errors), res.Final())
	}

	if job.plotter != nil && job.plotter.SampleCount() > 0 {
		file, err := job.plotter.Save()
		if err != nil {
			log.Printf("convergence plot: %v", err)
		} else {
			log.Printf("wrote %s", file)
		}
	}
	if failed > 0 {
		log.Fatalf("%d of %d files failed", failed, len(files))
	}
}
