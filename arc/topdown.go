package arc

import (
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/rcid"
	"github.com/nickng/arcseq/region"
)

// processLoopTopDown propagates the increments of r forwards over the
// children of r, and publishes the matches which reach the exits of r.
func (e *Evaluator) processLoopTopDown(r *region.Region) bool {
	st := e.regions.get(r)
	bottom := make(stateSet)
	if r.Irreducible() {
		e.logger.Debugf("%s skip irreducible %v ↓", e.logger.Module(), r)
	} else {
		out := make(map[int]stateSet) // Child ID → states at the bottom of the child.
		for _, c := range r.Children() {
			preds := make([]stateSet, 0, len(c.Preds()))
			for _, p := range c.Preds() {
				preds = append(preds, out[p.ID()])
			}
			out[c.ID()] = e.topDownNode(c, e.mergePredecessors(preds))
		}
		exits := make([]stateSet, 0, len(r.Exiting()))
		for _, x := range r.Exiting() {
			exits = append(exits, out[x.ID()])
		}
		bottom = meetSets(exits)
	}
	st.topDown = bottom.searching()
	published, changed := publish(e, e.decToInc, bottom, e.regions.publishedTopDown[r.ID()],
		func(s RefCountState) TopDownRefCountState { return TopDownRefCountState{s} },
		func(a, b TopDownRefCountState) bool { return a.Equal(b.RefCountState) })
	e.regions.publishedTopDown[r.ID()] = published
	return changed
}

// mergePredecessors is the meet of the states at the bottom of the
// predecessors.
func (e *Evaluator) mergePredecessors(preds []stateSet) stateSet {
	return meetSets(preds)
}

// topDownNode applies child c of the region being processed to set,
// scanning a block forwards or crossing a summarised loop.
func (e *Evaluator) topDownNode(c *region.Region, set stateSet) stateSet {
	if !c.IsBlock() {
		cst := e.regions.get(c)
		for _, k := range set.keys() {
			if s := set[k]; s.IsSearching() && e.crossingInvalidates(cst, c, s.Root) {
				e.logger.Debugf("%s invalidate ↓ %s crossing %v", e.logger.Module(), s, c)
				set[k] = s.invalidate()
			}
		}
		for k, s := range cst.topDown {
			set[k] = s
		}
		return set
	}
	for _, instr := range c.Instrs() {
		for _, k := range set.keys() {
			set[k] = e.topDownStep(set[k], instr)
		}
		if instr.IsIncrement() {
			e.seedTopDown(set, instr)
		}
	}
	return set
}

// seedTopDown adds the state of the increment instr to set.
func (e *Evaluator) seedTopDown(set stateSet, instr *ir.Instr) {
	s := RefCountState{
		Lattice: Tracking,
		Root:    rcid.RootOf(e.rc, instr),
		Seeds:   []*ir.Instr{instr},
	}
	s.Covering = coveredBy(set, s)
	set[s.Key()] = s
	e.logger.Debugf("%s seed ↓ %s", e.logger.Module(), s)
}
