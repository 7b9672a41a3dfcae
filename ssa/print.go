package ssa

import (
	"go/types"
	"io"

	"golang.org/x/tools/go/ssa"
)

// members is slice of ssa.Member. Used only for sorting by Pos.
type members []ssa.Member

func (m members) Len() int           { return len(m) }
func (m members) Less(i, j int) bool { return m[i].Pos() < m[j].Pos() }
func (m members) Swap(i, j int)      { m[i], m[j] = m[j], m[i] }

func ptrTo(t *ssa.Type) types.Type {
	return types.NewPointer(t.Type())
}

// WriteTo writes the Functions of the package to w in human readable SSA IR
// instruction format.
func (info *Info) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, fn := range info.Functions() {
		written, err := fn.WriteTo(w)
		n += written
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// WriteFunc writes the Function found by path to w.
func (info *Info) WriteFunc(w io.Writer, path string) (int64, error) {
	fn, err := info.FindFunc(path)
	if err != nil {
		return 0, err
	}
	return fn.WriteTo(w)
}
