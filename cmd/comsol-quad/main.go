// Command comsol-quad enforces four-fold transverse symmetry on Full3D
// binary field files. Each input <base>.bin is written as <base>_q.bin.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/emfield/internal/fsutil"
	"github.com/banshee-data/emfield/internal/version"
)

var showVersion = flag.Bool("version", false, "Print version and exit")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] field.bin...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("comsol-quad"))
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := 0
	files, err := fsutil.ExpandArgs(fsutil.OSFileSystem{}, flag.Args())
	if err != nil {
		log.Fatalf("%v", err)
	}
	for _, path := range files {
		out, err := quadFile(fsutil.OSFileSystem{}, path)
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
