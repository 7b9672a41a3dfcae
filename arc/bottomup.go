package arc

import (
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/rcid"
	"github.com/nickng/arcseq/region"
)

// processLoopBottomUp propagates the decrements of r backwards over the
// children of r, and publishes the matches which reach the top of r.
func (e *Evaluator) processLoopBottomUp(r *region.Region, freeze bool) bool {
	st := e.regions.get(r)
	top := make(stateSet)
	if r.Irreducible() {
		e.logger.Debugf("%s skip irreducible %v ↑", e.logger.Module(), r)
	} else {
		in := make(map[int]stateSet) // Child ID → states at the top of the child.
		children := r.Children()
		for k := len(children) - 1; k >= 0; k-- {
			c := children[k]
			succs := make([]stateSet, 0, len(c.Succs()))
			for _, s := range c.Succs() {
				succs = append(succs, in[s.ID()])
			}
			in[c.ID()] = e.bottomUpNode(c, e.mergeSuccessors(succs), freeze)
		}
		if h := r.Header(); h != nil {
			top = in[h.ID()]
		}
	}
	st.bottomUp = top.searching()
	published, changed := publish(e, e.incToDec, top, e.regions.publishedBottomUp[r.ID()],
		func(s RefCountState) BottomUpRefCountState { return BottomUpRefCountState{s} },
		func(a, b BottomUpRefCountState) bool { return a.Equal(b.RefCountState) })
	e.regions.publishedBottomUp[r.ID()] = published
	return changed
}

// mergeSuccessors is the meet of the states at the top of the successors.
func (e *Evaluator) mergeSuccessors(succs []stateSet) stateSet {
	return meetSets(succs)
}

// bottomUpNode applies child c of the region being processed to set,
// scanning a block backwards or crossing a summarised loop.
func (e *Evaluator) bottomUpNode(c *region.Region, set stateSet, freeze bool) stateSet {
	if !c.IsBlock() {
		cst := e.regions.get(c)
		for _, k := range set.keys() {
			if s := set[k]; s.IsSearching() && e.crossingInvalidates(cst, c, s.Root) {
				e.logger.Debugf("%s invalidate ↑ %s crossing %v", e.logger.Module(), s, c)
				set[k] = s.invalidate()
			}
		}
		for k, s := range cst.bottomUp {
			set[k] = s
		}
		return set
	}
	instrs := c.Instrs()
	for n := len(instrs) - 1; n >= 0; n-- {
		instr := instrs[n]
		for _, k := range set.keys() {
			set[k] = e.bottomUpStep(set[k], instr)
		}
		if instr.IsDecrement() {
			e.seedBottomUp(set, instr, freeze)
		}
	}
	return set
}

// seedBottomUp adds the state of the decrement instr to set. An epilogue
// release seeds the state of its whole group.
func (e *Evaluator) seedBottomUp(set stateSet, instr *ir.Instr, freeze bool) {
	s := RefCountState{
		Lattice: Tracking,
		Root:    rcid.RootOf(e.rc, instr),
		Seeds:   []*ir.Instr{instr},
	}
	if arg := e.epilogue.ArgFor(instr); arg != nil {
		s.Seeds = e.epilogue.Releases(arg)
		s.Arg = arg
		s.Frozen = freeze
	}
	s.Covering = coveredBy(set, s)
	set[s.Key()] = s
	e.logger.Debugf("%s seed ↑ %s", e.logger.Module(), s)
}

// coveredBy returns true if another state of the root of s is still
// searching in set.
func coveredBy(set stateSet, s RefCountState) bool {
	for k, other := range set {
		if k != s.Key() && other.Root == s.Root && other.IsSearching() {
			return true
		}
	}
	return false
}
