package build

import (
	"io"
	"io/ioutil"

	"github.com/nickng/arcseq/ssa"
	"github.com/pkg/errors"
)

// Builder builds SSA IR and metainfo.
type Builder interface {
	Build() (*ssa.Info, error)
}

// FileSrc is a set of filenames.
type FileSrc struct {
	Files []string
}

// FromFiles returns a non-nil Builder from filenames. All files must belong
// to the same package.
func FromFiles(files ...string) Configurer {
	return newConfig(&FileSrc{Files: files})
}

// CachedSrc is source file from a reader.
type CachedSrc struct {
	Name   string
	cached []byte
	err    error
}

// FromReader returns a non-nil Builder for a reader.
// This is typically used for testing or building a single file.
func FromReader(r io.Reader) Configurer {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		err = errors.Wrap(err, "failed to read from reader")
	}
	return newConfig(&CachedSrc{Name: "tmp.go", cached: b, err: err})
}
