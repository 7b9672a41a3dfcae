// Package alias answers may-alias and escape queries over the values of an
// ir.Function.
package alias

import (
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/rcid"
)

// Oracle answers whether two values may refer to overlapping storage and
// whether a value may be reachable from outside the function.
type Oracle interface {
	MayAlias(a, b ir.Value) bool
	MayEscape(v ir.Value) bool
}

// Analysis is an Oracle backed by an escape summary of the allocations of
// one function.
type Analysis struct {
	ids     rcid.Oracle
	escapes map[*ir.Instr]bool // Allocations reachable from outside.
}

// New computes the escape summary of fn. An allocation escapes when it is
// stored, passed to a call, returned, or merged into a value that escapes.
func New(fn *ir.Function, ids rcid.Oracle) *Analysis {
	a := &Analysis{ids: ids, escapes: make(map[*ir.Instr]bool)}
	escaping := make(map[ir.Value]bool)
	for _, instr := range fn.Instrs() {
		switch instr.Op {
		case ir.OpStore:
			escaping[a.base(instr.Args[1])] = true
		case ir.OpCall, ir.OpReturn:
			for _, arg := range instr.Args {
				escaping[a.base(arg)] = true
			}
		}
	}
	// Merges of escaping values escape their incoming values.
	for changed := true; changed; {
		changed = false
		for _, instr := range fn.Instrs() {
			if instr.Op != ir.OpPhi || !escaping[a.base(instr)] {
				continue
			}
			for _, edge := range instr.Args {
				if b := a.base(edge); !escaping[b] {
					escaping[b] = true
					changed = true
				}
			}
		}
	}
	for v := range escaping {
		if instr, ok := v.(*ir.Instr); ok && instr.Op == ir.OpAlloc {
			a.escapes[instr] = true
		}
	}
	return a
}

// base returns the root of the object v is part of, looking through
// projections.
func (a *Analysis) base(v ir.Value) ir.Value {
	r := a.ids.Root(v)
	for {
		instr, ok := r.(*ir.Instr)
		if !ok || instr.Op != ir.OpProject {
			return r
		}
		r = a.ids.Root(instr.Operand())
	}
}

func isAlloc(v ir.Value) bool {
	instr, ok := v.(*ir.Instr)
	return ok && instr.Op == ir.OpAlloc
}

// MayAlias returns false only when a and b provably refer to distinct
// objects: two different allocations, or a local allocation and any value
// which could only reach it through an escape.
func (a *Analysis) MayAlias(x, y ir.Value) bool {
	bx, by := a.base(x), a.base(y)
	if bx == by {
		return true
	}
	switch {
	case isAlloc(bx) && isAlloc(by):
		return false
	case isAlloc(bx):
		return a.escapes[bx.(*ir.Instr)]
	case isAlloc(by):
		return a.escapes[by.(*ir.Instr)]
	}
	return true
}

// MayEscape returns true unless v is part of a local allocation which never
// escapes.
func (a *Analysis) MayEscape(v ir.Value) bool {
	if b := a.base(v); isAlloc(b) {
		return a.escapes[b.(*ir.Instr)]
	}
	return true
}
