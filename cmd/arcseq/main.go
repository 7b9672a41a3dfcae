// Command arcseq is the command line entry point to the retain/release
// sequence analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/nickng/arcseq/config"
	"github.com/nickng/arcseq/pass"
	"github.com/nickng/arcseq/ssa/build"
)

const (
	Usage = `arcseq is a tool for finding retain/release pairs which can be removed
together in Go source code.

Usage:

  arcseq [options] file.go [files.go...]

Options:

`
)

var (
	confPath string
	logPath  string
	viewFunc string
	showMaps bool
	freeze   bool
	noFreeze bool
	workers  int
)

func init() {
	flag.StringVar(&confPath, "config", "", "Specify configuration file (YAML)")
	flag.StringVar(&logPath, "log", "", "Specify analysis log file (use '-' for stderr)")
	flag.StringVar(&viewFunc, "func", "", `Analyse only this function (format: (import/path).FuncName)`)
	flag.BoolVar(&showMaps, "maps", false, "Show the raw increment/decrement maps")
	flag.BoolVar(&freeze, "freeze", false, "Never match epilogue releases of consumed arguments")
	flag.BoolVar(&noFreeze, "nofreeze", false, "Allow matching epilogue releases of consumed arguments")
	flag.IntVar(&workers, "workers", 0, "Number of functions analysed in parallel (default: from config)")
}

func main() {
	flag.Parse()
	if flag.NArg() == 0 {
		fmt.Fprint(os.Stderr, Usage)
		flag.PrintDefaults()
		os.Exit(0)
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	conf := config.Default()
	if confPath != "" {
		c, err := config.Load(confPath)
		if err != nil {
			log.Fatal("Cannot load config:", err)
		}
		conf = c
	}
	switch {
	case freeze:
		conf.FreezeOwnedArgEpilogueReleases = true
	case noFreeze:
		conf.FreezeOwnedArgEpilogueReleases = false
	}
	if workers > 0 {
		conf.Workers = workers
	}

	bld := build.FromFiles(flag.Args()...).Default()
	switch logPath {
	case "":
	case "-":
		bld = bld.WithBuildLog(os.Stderr, log.LstdFlags)
		conf.Log.Output = []string{"stderr"}
	default:
		f, err := os.Create(logPath)
		if err != nil {
			log.Fatalf("Cannot create log %s: %v", logPath, err)
		}
		defer f.Close()
		bld = bld.WithBuildLog(f, log.LstdFlags)
		conf.Log.Output = []string{logPath}
	}
	info, err := bld.Build()
	if err != nil {
		log.Fatal("Build failed:", err)
	}

	p := pass.New(info, conf)
	if logPath != "" {
		logger := newLogger(conf)
		defer logger.Sync()
		p.SetLogger(logger.Sugar())
	}

	var results []*pass.Result
	if viewFunc != "" {
		fn, err := info.FindFunc(viewFunc)
		if err != nil {
			log.Fatal(err)
		}
		f, err := p.Lower(fn)
		if err != nil {
			log.Fatal(err)
		}
		res, err := p.AnalyseFunction(f)
		if err != nil {
			log.Fatal(err)
		}
		results = append(results, res)
	} else {
		results, err = p.Run(context.Background())
		if err != nil {
			log.Fatal("Analysis failed:", err)
		}
	}
	for _, res := range results {
		if _, err := res.WriteTo(os.Stdout); err != nil {
			log.Fatal(err)
		}
		if showMaps {
			if err := res.WriteMaps(os.Stdout); err != nil {
				log.Fatal(err)
			}
		}
	}
}
