package arc

import (
	"github.com/nickng/arcseq/alias"
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/rcid"
	"github.com/nickng/arcseq/region"
)

// Invalidator decides whether an operation between an increment and a
// decrement of root may make removing the pair unsafe. Implementations must
// over-approximate: answering true is always sound.
//
// Increments and decrements of root itself are handled by the transition
// rules and are never passed to MayInvalidate.
type Invalidator interface {
	MayInvalidate(instr *ir.Instr, root ir.Value) bool
}

// InvalidatorFunc is an adapter to use a function as an Invalidator.
type InvalidatorFunc func(instr *ir.Instr, root ir.Value) bool

func (f InvalidatorFunc) MayInvalidate(instr *ir.Instr, root ir.Value) bool {
	return f(instr, root)
}

// aliasInvalidator is the default Invalidator built from the alias and
// identity oracles.
type aliasInvalidator struct {
	aa alias.Oracle
	rc rcid.Oracle
}

// NewAliasInvalidator returns an Invalidator which reports an operation as
// invalidating root if it
//   - releases another root which may alias root,
//   - stores through or stores a value which may alias root,
//   - passes or returns a value which may alias root, or
//   - is any call while root may escape.
func NewAliasInvalidator(aa alias.Oracle, rc rcid.Oracle) Invalidator {
	return &aliasInvalidator{aa: aa, rc: rc}
}

func (inv *aliasInvalidator) MayInvalidate(instr *ir.Instr, root ir.Value) bool {
	switch instr.Op {
	case ir.OpRelease:
		r := rcid.RootOf(inv.rc, instr)
		return r != root && inv.aa.MayAlias(r, root)
	case ir.OpStore:
		return inv.anyMayAlias(instr.Args, root)
	case ir.OpCall:
		return inv.aa.MayEscape(root) || inv.anyMayAlias(instr.Args, root)
	case ir.OpReturn:
		return inv.anyMayAlias(instr.Args, root)
	}
	return false
}

func (inv *aliasInvalidator) anyMayAlias(vs []ir.Value, root ir.Value) bool {
	for _, v := range vs {
		if inv.aa.MayAlias(v, root) {
			return true
		}
	}
	return false
}

// bottomUpStep returns s after scanning instr backwards.
func (e *Evaluator) bottomUpStep(s RefCountState, instr *ir.Instr) RefCountState {
	if !s.IsSearching() {
		return s
	}
	switch {
	case instr.IsIncrement() && e.sameRoot(instr, s.Root):
		if s.Depth > 0 {
			s.Depth--
			return s
		}
		if s.Frozen {
			e.logger.Debugf("%s frozen %s reaches %s", e.logger.Module(), s, instr.Label())
			return s.invalidate()
		}
		s.Partners = []*ir.Instr{instr}
		e.logger.Debugf("%s match ↑ %s", e.logger.Module(), s)
		return s
	case instr.IsDecrement() && e.sameRoot(instr, s.Root):
		if containsInstr(s.Seeds, instr) {
			return s
		}
		s.Depth++
		return s
	default:
		if e.inv.MayInvalidate(instr, s.Root) {
			e.logger.Debugf("%s invalidate ↑ %s at %s", e.logger.Module(), s, instr.Label())
			return s.invalidate()
		}
	}
	return s
}

// topDownStep returns s after scanning instr forwards.
func (e *Evaluator) topDownStep(s RefCountState, instr *ir.Instr) RefCountState {
	if !s.IsSearching() {
		return s
	}
	switch {
	case instr.IsDecrement() && e.sameRoot(instr, s.Root):
		if s.Depth > 0 {
			s.Depth--
			return s
		}
		if arg := e.epilogue.ArgFor(instr); arg != nil {
			if e.freeze {
				e.logger.Debugf("%s %s reaches frozen epilogue release %s", e.logger.Module(), s, instr.Label())
				return s.invalidate()
			}
			s.Partners = e.epilogue.Releases(arg)
		} else {
			s.Partners = []*ir.Instr{instr}
		}
		e.logger.Debugf("%s match ↓ %s", e.logger.Module(), s)
		return s
	case instr.IsIncrement() && e.sameRoot(instr, s.Root):
		if containsInstr(s.Seeds, instr) {
			return s
		}
		s.Depth++
		return s
	default:
		if e.inv.MayInvalidate(instr, s.Root) {
			e.logger.Debugf("%s invalidate ↓ %s at %s", e.logger.Module(), s, instr.Label())
			return s.invalidate()
		}
	}
	return s
}

func (e *Evaluator) sameRoot(instr *ir.Instr, root ir.Value) bool {
	return rcid.RootOf(e.rc, instr) == root
}

// crossingInvalidates returns true if a state of root cannot cross the
// child loop c: the loop changes the reference count of root, may
// invalidate it, or its body is irreducible.
func (e *Evaluator) crossingInvalidates(st *ARCRegionState, c *region.Region, root ir.Value) bool {
	if inv, ok := st.crossing[root]; ok {
		return inv
	}
	inv := c.Irreducible()
	for _, instr := range c.AllInstrs() {
		if inv {
			break
		}
		if (instr.IsIncrement() || instr.IsDecrement()) && e.sameRoot(instr, root) {
			inv = true
		} else if e.inv.MayInvalidate(instr, root) {
			inv = true
		}
	}
	if st.crossing == nil {
		st.crossing = make(map[ir.Value]bool)
	}
	st.crossing[root] = inv
	return inv
}
