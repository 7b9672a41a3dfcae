package build

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"io/ioutil"
	"log"

	"github.com/nickng/arcseq/ssa"
	"github.com/pkg/errors"
	gossa "golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

type Configurer interface {
	Builder
	Default() Configurer
	WithBuildLog(l io.Writer, flags int) Configurer
	WithImporter(compiler string) Configurer
	WithMode(mode gossa.BuilderMode) Configurer
}

// Config represents a build configuration.
type Config struct {
	compiler string            // Importer kind, see go/importer.ForCompiler.
	mode     gossa.BuilderMode // SSA builder flags.

	bldLog    io.Writer // Build log.
	bldLFlags int       // Build log flags.

	src interface{} // src points to the program source.
}

func newConfig(src interface{}) *Config {
	return &Config{
		compiler:  "gc",
		bldLog:    ioutil.Discard,
		bldLFlags: log.LstdFlags,
		src:       src,
	}
}

// WithBuildLog adds build log to config.
func (c *Config) WithBuildLog(l io.Writer, flags int) Configurer {
	c.bldLog = l
	c.bldLFlags = flags
	return c
}

// WithImporter selects how imported packages are type checked: "gc" reads
// compiled export data, "source" type checks imports from source.
func (c *Config) WithImporter(compiler string) Configurer {
	c.compiler = compiler
	return c
}

// WithMode sets the SSA builder mode.
func (c *Config) WithMode(mode gossa.BuilderMode) Configurer {
	c.mode = mode
	return c
}

// Default returns a default configuration for static analysis: imports are
// type checked from source, and function bodies are sanity checked.
func (c *Config) Default() Configurer {
	return c.WithImporter("source").WithMode(gossa.SanityCheckFunctions)
}

func (c *Config) parse(fset *token.FileSet) ([]*ast.File, error) {
	const mode = parser.ParseComments
	switch src := c.src.(type) {
	case *FileSrc:
		if len(src.Files) == 0 {
			return nil, errors.New("no source files")
		}
		var files []*ast.File
		for _, name := range src.Files {
			f, err := parser.ParseFile(fset, name, nil, mode)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to parse file: %s", name)
			}
			files = append(files, f)
		}
		return files, nil
	case *CachedSrc:
		if src.err != nil {
			return nil, src.err
		}
		f, err := parser.ParseFile(fset, src.Name, src.cached, mode)
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse source")
		}
		return []*ast.File{f}, nil
	}
	return nil, errors.Errorf("unknown source type %T", c.src)
}

func (c *Config) Build() (*ssa.Info, error) {
	bldLog := log.New(c.bldLog, "ssabuild: ", c.bldLFlags)
	fset := token.NewFileSet()
	files, err := c.parse(fset)
	if err != nil {
		return nil, err
	}
	name := files[0].Name.Name
	for _, f := range files[1:] {
		if f.Name.Name != name {
			return nil, errors.Errorf("files of packages %s and %s mixed", name, f.Name.Name)
		}
	}
	bldLog.Printf("Parsed %d file(s) of package %s", len(files), name)

	tconf := &types.Config{Importer: importer.ForCompiler(fset, c.compiler, nil)}
	pkg, _, err := ssautil.BuildPackage(tconf, fset, types.NewPackage(name, name), files, c.mode)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build SSA")
	}
	bldLog.Print("Program loaded and type checked")

	return &ssa.Info{
		FSet:   fset,
		Files:  files,
		Pkg:    pkg,
		Prog:   pkg.Prog,
		BldLog: c.bldLog,
	}, nil
}
