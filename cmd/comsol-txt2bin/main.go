// Command comsol-txt2bin converts COMSOL or FEMM text exports into binary
// field files. Each input <base>.txt is written beside itself as <base>.bin.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/config"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/ingest"
	"github.com/banshee-data/emfield/internal/version"
)

var (
	femm        = flag.Bool("femm", false, "Inputs are FEMM \"r z Er Ez\" tables")
	model       = flag.String("model", "", "Override the model name stored in the header")
	configPath  = flag.String("config", "", "Path to a tools JSON config (defaults apply when empty)")
	catalogPath = flag.String("catalog", "", "sqlite catalogue to record outputs in (overrides config)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] export.txt...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("comsol-txt2bin"))
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

	opts := ingest.Options{Model: *model, RepeatTolerance: cfg.GetRepeatTolerance()}
	if *femm {
		opts.Format = ingest.FEMM
	}

	failed := 0
	files, err := fsutil.ExpandArgs(fsutil.OSFileSystem{}, flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}
	for _, path := range files {
		out, err := convert(fsutil.OSFileSystem{}, cat, path, opts)
		if err != nil {
			log.Printf("%s: %v", path, err)
			failed++
			continue
		}
		log.Printf("wrote %s", out)
	}
	if failed > 0 {
		log.Fatalf("%d of %d files failed", failed, len(files))
	}
}
