// Package rcid resolves values to the reference-counted object they
// identify.
package rcid

import (
	"github.com/nickng/arcseq/ir"
)

// Oracle maps a value to its identity root, the canonical value for the
// object whose reference count an operation on the value affects. Two
// values have the same identity when their roots are the same value.
type Oracle interface {
	Root(v ir.Value) ir.Value
}

// Analysis is an Oracle for one function. Results are cached.
type Analysis struct {
	fn    *ir.Function
	roots map[ir.Value]ir.Value
}

// New returns the identity analysis of fn.
func New(fn *ir.Function) *Analysis {
	return &Analysis{fn: fn, roots: make(map[ir.Value]ir.Value)}
}

// Root returns the identity root of v. Casts are transparent; a phi whose
// incoming values all have the same root has that root. Every other value
// is its own root.
func (a *Analysis) Root(v ir.Value) ir.Value {
	if v == nil {
		return nil
	}
	if r, ok := a.roots[v]; ok {
		return r
	}
	a.roots[v] = v // Cycles through phis resolve to the phi itself.
	r := a.root(v)
	a.roots[v] = r
	return r
}

func (a *Analysis) root(v ir.Value) ir.Value {
	instr, ok := v.(*ir.Instr)
	if !ok {
		return v
	}
	switch instr.Op {
	case ir.OpCast:
		return a.Root(instr.Operand())
	case ir.OpPhi:
		var common ir.Value
		for _, edge := range instr.Args {
			r := a.Root(edge)
			if r == instr {
				continue // Loop-carried self reference.
			}
			if common == nil {
				common = r
			} else if common != r {
				return instr
			}
		}
		if common != nil {
			return common
		}
	}
	return instr
}

// RootOf returns the identity root of the first operand of instr, nil if
// instr has no operand.
func RootOf(o Oracle, instr *ir.Instr) ir.Value {
	if v := instr.Operand(); v != nil {
		return o.Root(v)
	}
	return nil
}
