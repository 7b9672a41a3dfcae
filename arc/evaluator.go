package arc

import (
	"github.com/fatih/color"
	"github.com/nickng/arcseq/alias"
	"github.com/nickng/arcseq/blotmap"
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/loop"
	"github.com/nickng/arcseq/rcid"
	"github.com/nickng/arcseq/region"
)

// IncToDecMap maps an increment to the bottom-up state of the decrement
// matched to it.
type IncToDecMap = blotmap.Map[*ir.Instr, BottomUpRefCountState]

// DecToIncMap maps a decrement to the top-down state of the increment
// matched to it.
type DecToIncMap = blotmap.Map[*ir.Instr, TopDownRefCountState]

// NewIncToDecMap returns an empty IncToDecMap.
func NewIncToDecMap() *IncToDecMap { return blotmap.New[*ir.Instr, BottomUpRefCountState]() }

// NewDecToIncMap returns an empty DecToIncMap.
func NewDecToIncMap() *DecToIncMap { return blotmap.New[*ir.Instr, TopDownRefCountState]() }

// Evaluator runs the retain/release sequence dataflow over the region tree
// of a function.
//
// The output maps are owned by the caller, and must not be accessed by
// anything else during RunOnLoop. An Evaluator is not safe for concurrent
// use.
type Evaluator struct {
	fn       *ir.Function
	aa       alias.Oracle
	tree     *region.Tree
	forest   *loop.Forest
	rc       rcid.Oracle
	inv      Invalidator
	decToInc *DecToIncMap
	incToDec *IncToDecMap

	regions  *regionStore
	epilogue *ConsumedArgToEpilogueReleaseMap
	freeze   bool // Of the current run.

	logger *Logger
}

// NewEvaluator binds the collaborators of the dataflow over fn and computes
// the epilogue releases of its consumed arguments. No dataflow is run.
//
// The region tree and the loop forest must both have been computed for fn,
// and agree on the loops of fn.
func NewEvaluator(fn *ir.Function, aa alias.Oracle, tree *region.Tree, forest *loop.Forest,
	rc rcid.Oracle, decToInc *DecToIncMap, incToDec *IncToDecMap) *Evaluator {
	if tree.Function() != fn || forest.Function() != fn {
		fatalf("region tree (%s) and loop info (%s) are not computed for %s",
			tree.Function().Name, forest.Function().Name, fn.Name)
	}
	loops := tree.Loops()
	if len(loops) != forest.Len() {
		fatalf("region tree has %d loops but loop info has %d", len(loops), forest.Len())
	}
	for i, l := range forest.PostOrder() {
		if loops[i].Loop() != l {
			fatalf("loop region %v does not match loop %s", loops[i], l)
		}
	}
	if decToInc == nil || incToDec == nil {
		fatalf("output maps of %s are nil", fn.Name)
	}
	e := &Evaluator{
		fn:       fn,
		aa:       aa,
		tree:     tree,
		forest:   forest,
		rc:       rc,
		inv:      NewAliasInvalidator(aa, rc),
		decToInc: decToInc,
		incToDec: incToDec,
		regions:  newRegionStore(tree),
		logger:   nopLogger(),
	}
	e.epilogue = computePostDominatingConsumedArgMap(fn, rc)
	return e
}

// SetLogger sets logger for Evaluator.
func (e *Evaluator) SetLogger(l *Logger) {
	e.logger = l.withModule("arc  ", color.New(color.FgMagenta))
}

// SetInvalidator replaces the rule deciding which operations invalidate a
// state. Region states computed with the previous rule must be cleared.
func (e *Evaluator) SetInvalidator(inv Invalidator) {
	e.inv = inv
}

// Function returns the function under analysis.
func (e *Evaluator) Function() *ir.Function { return e.fn }

// Epilogue returns the epilogue releases of the consumed arguments.
func (e *Evaluator) Epilogue() *ConsumedArgToEpilogueReleaseMap { return e.epilogue }

// RegionState returns the dataflow record of r.
func (e *Evaluator) RegionState(r *region.Region) *ARCRegionState {
	return e.regions.get(r)
}

// ClearLoopState discards the dataflow record of r. Clearing a region which
// is already clear has no effect. The entries r published stay in the
// output maps until r runs again, which blots those it no longer matches.
func (e *Evaluator) ClearLoopState(r *region.Region) {
	n := e.regions.clear(r)
	e.logger.Debugf("%s clear %v (%d clears)", e.logger.Module(), r, n)
}

// RunOnLoop computes the summaries of r, first recomputing the child loops
// of r which are not up to date, innermost first. Bottom-up runs before
// top-down. It returns true if any entry of the output maps was added,
// changed or removed.
//
// freezeOwnedArgEpilogueReleases prevents epilogue releases of consumed
// arguments from being matched.
func (e *Evaluator) RunOnLoop(r *region.Region, freezeOwnedArgEpilogueReleases bool) bool {
	if r.IsBlock() {
		fatalf("RunOnLoop on block region %v", r)
	}
	st := e.regions.get(r)
	changed := false
	for _, c := range r.Children() {
		if c.IsLoop() && !e.regions.get(c).valid {
			if e.RunOnLoop(c, freezeOwnedArgEpilogueReleases) {
				changed = true
			}
		}
	}
	e.freeze = freezeOwnedArgEpilogueReleases
	e.logger.Debugf("%s run %v (freeze=%t)", e.logger.Module(), r, e.freeze)
	if e.processLoopBottomUp(r, freezeOwnedArgEpilogueReleases) {
		changed = true
	}
	if e.processLoopTopDown(r) {
		changed = true
	}
	st.valid = true
	return changed
}

// publish records the matched states of set as entries of out, keyed by
// their partners. A partner claimed by more than one seed is not recorded.
// Keys published previously and not any more are blotted.
func publish[V any](e *Evaluator, out *blotmap.Map[*ir.Instr, V], set stateSet, previous []*ir.Instr,
	wrap func(RefCountState) V, equal func(V, V) bool) ([]*ir.Instr, bool) {
	claims := make(map[*ir.Instr][]*ir.Instr)
	var partners []*ir.Instr
	for _, k := range set.keys() {
		s := set[k]
		if !s.IsMatched() {
			continue
		}
		for _, p := range s.Partners {
			if _, ok := claims[p]; !ok {
				partners = append(partners, p)
			}
			claims[p] = append(claims[p], k)
		}
	}
	sortInstrs(partners)

	changed := false
	var published []*ir.Instr
	for _, p := range partners {
		if len(claims[p]) > 1 {
			e.logger.Debugf("%s drop %s claimed by %d seeds", e.logger.Module(), p.Label(), len(claims[p]))
			continue
		}
		v := wrap(set[claims[p][0]])
		if old, ok := out.Get(p); !ok || !equal(old, v) {
			out.Set(p, v)
			changed = true
			e.logger.Debugf("%s publish %s", e.logger.Module(), p.Label())
		}
		published = append(published, p)
	}
	for _, k := range previous {
		if containsInstr(published, k) {
			continue
		}
		if out.Blot(k) {
			changed = true
			e.logger.Debugf("%s blot %s", e.logger.Module(), k.Label())
		}
	}
	return published, changed
}
