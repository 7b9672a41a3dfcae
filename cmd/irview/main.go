// Command irview prints the lowered ARC IR of Go source code, with its loops
// and region tree.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/nickng/arcseq/config"
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/loop"
	"github.com/nickng/arcseq/pass"
	"github.com/nickng/arcseq/region"
	"github.com/nickng/arcseq/ssa/build"
)

const (
	Usage = `irview is a tool for printing the ARC IR of Go source code.

Usage:

  irview [options] file.go [files.go...]

Options:

`
)

var (
	buildlogPath string
	confPath     string
	outPath      string
	viewFunc     string
	showSSA      bool
	showRegions  bool

	out  io.Writer
	logw = io.Discard
)

func init() {
	flag.StringVar(&buildlogPath, "log", "", "Specify build log file (use '-' for stdout)")
	flag.StringVar(&confPath, "config", "", "Specify configuration file (YAML)")
	flag.StringVar(&outPath, "out", "", "Specify output file (default: stdout)")
	flag.StringVar(&viewFunc, "func", "", `Specify the function to view (format: (import/path).FuncName)`)
	flag.BoolVar(&showSSA, "ssa", false, "Also print the SSA of the function")
	flag.BoolVar(&showRegions, "regions", true, "Print loops and the region tree")
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprint(os.Stderr, Usage)
		flag.PrintDefaults()
		os.Exit(0)
	}

	conf := build.FromFiles(flag.Args()...).Default()
	switch buildlogPath {
	case "":
	case "-":
		conf = conf.WithBuildLog(os.Stdout, log.LstdFlags)
		logw = os.Stdout
	default:
		f, err := os.Create(buildlogPath)
		if err != nil {
			log.Fatalf("Cannot create log %s: %v", buildlogPath, err)
		}
		defer f.Close()
		conf = conf.WithBuildLog(f, log.LstdFlags)
		logw = f
	}

	switch outPath {
	case "":
		out = os.Stdout
	default:
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatalf("Cannot create output file %s: %v", outPath, err)
		}
		defer f.Close()
		out = f
	}

	passConf := config.Default()
	if confPath != "" {
		c, err := config.Load(confPath)
		if err != nil {
			log.Fatal("Cannot load config:", err)
		}
		passConf = c
	}

	info, err := conf.Build()
	if err != nil {
		log.Fatal("Cannot build SSA from files:", err)
	}
	p := pass.New(info, passConf)
	fns := info.Functions()
	if viewFunc != "" {
		fn, err := info.FindFunc(viewFunc)
		if err != nil {
			log.Fatal(err)
		}
		fns = fns[:0]
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		if showSSA {
			if _, err := fn.WriteTo(out); err != nil {
				log.Fatal("Cannot write SSA:", err)
			}
		}
		f, err := p.Lower(fn)
		if err != nil {
			log.Fatal(err)
		}
		if err := writeFunc(out, f); err != nil {
			log.Fatal("Cannot write IR:", err)
		}
	}
}

func writeFunc(w io.Writer, f *ir.Function) error {
	if _, err := f.WriteTo(w); err != nil {
		return err
	}
	if !showRegions {
		return nil
	}
	d := loop.NewDetector()
	d.SetLog(logw)
	forest := d.Detect(f)
	for _, l := range forest.Loops() {
		if _, err := fmt.Fprintf(w, "; %s\n", l); err != nil {
			return err
		}
	}
	if forest.Irreducible() {
		if _, err := fmt.Fprintln(w, "; irreducible"); err != nil {
			return err
		}
	}
	if _, err := region.Build(f, forest).WriteTo(w); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
