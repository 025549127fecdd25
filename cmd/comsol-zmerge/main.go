// Command comsol-zmerge stacks two Full3D binary field files that share an
// x/y lattice along z. The result is written beside the lower file as
// <base>_<zmin>-<zmax>.bin.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/config"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/version"
)

var (
	tolerance   = flag.Float64("tol", 0, "Relative tolerance for matching extents (0 uses the config value)")
	configPath  = flag.String("config", "", "Path to a tools JSON config (defaults apply when empty)")
	catalogPath = flag.String("catalog", "", "sqlite catalogue to record the output in (overrides config)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] a.bin b.bin\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("comsol-zmerge"))
		return
	}
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	tol := *tolerance
	if tol <= 0 {
		tol = cfg.GetMergeTolerance()
	}
	catPath := *catalogPath
	if catPath == "" {
		catPath = cfg.GetCatalogPath()
	}
	cat, err := catalog.OpenIfSet(catPath)
	if err != nil {
		log.Fatalf("catalogue %s: %v", catPath, err)
	}
	if cat != nil {
		defer cat.Close()
	}

	out, err := mergeFiles(fsutil.OSFileSystem{}, cat, flag.Arg(0), flag.Arg(1), tol)
	if err != nil {
		log.Fatalf("merge: %v", err)
	}
	log.Printf("wrote %s", out)
}
