// Command fieldserve loads a field tree and answers point queries over
// HTTP. With a catalogue attached it also serves the recorded field files
// and smoothing runs, plus the tsweb debug pages and a tailsql console.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/emfield/internal/catalog"
	"github.com/banshee-data/emfield/internal/config"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/server"
	"github.com/banshee-data/emfield/internal/version"
)

var (
	treePath    = flag.String("tree", "", "Field hierarchy descriptor to serve")
	fieldRoot   = flag.String("root", "", "Refuse field files outside this directory")
	listen      = flag.String("listen", "", "HTTP listen address (overrides config, default :8080)")
	catalogPath = flag.String("catalog", "", "sqlite catalogue to expose (overrides config)")
	configPath  = flag.String("config", "", "Path to a tools JSON config (defaults apply when empty)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("fieldserve"))
		return
	}
	if *treePath == "" {
		fmt.Fprintln(os.Stderr, "fieldserve: -tree is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	addr := *listen
	if addr == "" {
		addr = cfg.GetListenAddr()
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

	handler, err := buildHandler(fsutil.OSFileSystem{}, *treePath, *fieldRoot, cfg, cat)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("%s serving %s on %s", version.String("fieldserve"), *treePath, addr)
	if err := server.ListenAndServe(ctx, addr, handler, cfg.GetReadTimeout()); err != nil {
		log.Fatalf("serve: %v", err)
	}
	log.Printf("shut down")
}
