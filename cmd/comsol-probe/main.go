// Command comsol-probe reads "x y z" lines from stdin and prints the field
// at each point, either from a local tree descriptor or from a running
// fieldserve instance.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/emfield/internal/config"
	"github.com/banshee-data/emfield/internal/fieldtree"
	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/server"
	"github.com/banshee-data/emfield/internal/version"
)

var (
	remote      = flag.String("remote", "", "Base URL of a fieldserve instance to query instead of a local tree")
	configPath  = flag.String("config", "", "Path to a tools JSON config (defaults apply when empty)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] tree.txt < points\n       %s -remote http://host:8080 < points\n", os.Args[0], os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("comsol-probe"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var s sampler
	switch {
	case *remote != "":
		s = remoteSampler{client: server.NewClient(*remote, nil)}
	case flag.NArg() == 1:
		cfg, err := config.LoadOrDefault(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		l := fieldtree.NewLoader(fsutil.OSFileSystem{})
		l.MaxChildren = cfg.GetMaxChildren()
		l.Strict = cfg.GetStrictTree()
		root, err := l.LoadFile(flag.Arg(0))
		if err != nil {
			log.Fatalf("tree: %v", err)
		}
		s = treeSampler{root: root}
	default:
		flag.Usage()
		os.Exit(2)
	}

	n, err := probe(ctx, s, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("probe: %v", err)
	}
	log.Printf("probed %d points", n)
}
