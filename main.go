// trainset-report extracts labeled training samples from .r49 capture
// archives: it parses each archive's manifest, normalises the images to a
// target calibration density, and crops fixed-size patches around the
// annotated markers for downstream classifier training.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/railfield-data/trainset.report/internal/version"
)

var (
	configPath  = flag.String("config", "trainset.json", "Extraction config file (.json or .yaml)")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <command>\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  extract    Extract samples from all archives under the data dir (default)\n")
	fmt.Fprintf(os.Stderr, "  inspect    Print manifest calibration info for one archive\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("trainset-report %s\n", version.String())
		return
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "extract"
	}

	var err error
	switch cmd {
	case "extract":
		err = runExtract(*configPath)
	case "inspect":
		err = runInspect(flag.Arg(1))
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}
