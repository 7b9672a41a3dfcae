package arc

import (
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/region"
	"github.com/nickng/arcseq/store"
)

// ARCRegionState is the dataflow record of one region.
type ARCRegionState struct {
	valid bool // Summaries are up to date.

	// Summaries of the region as a node of its parent: the bottom-up states
	// still searching at its top, the top-down states still searching at its
	// bottom.
	bottomUp stateSet
	topDown  stateSet

	// Root → whether crossing the region invalidates a state of the root.
	crossing map[ir.Value]bool
}

// Valid returns true if the region was run and not cleared since.
func (s *ARCRegionState) Valid() bool { return s.valid }

// BottomUpSummary returns the bottom-up states still searching at the top
// of the region, ordered by seed.
func (s *ARCRegionState) BottomUpSummary() []BottomUpRefCountState {
	var out []BottomUpRefCountState
	for _, k := range s.bottomUp.keys() {
		out = append(out, BottomUpRefCountState{s.bottomUp[k]})
	}
	return out
}

// TopDownSummary returns the top-down states still searching at the bottom
// of the region, ordered by seed.
func (s *ARCRegionState) TopDownSummary() []TopDownRefCountState {
	var out []TopDownRefCountState
	for _, k := range s.topDown.keys() {
		out = append(out, TopDownRefCountState{s.topDown[k]})
	}
	return out
}

// regionStore holds one ARCRegionState per region ID.
//
// The keys of IncToDecMap and DecToIncMap published by a region live
// outside its slot and survive a clear, so that the next run of the region
// blots the ones it no longer publishes.
type regionStore struct {
	tree  *region.Tree
	arena *store.Arena[ARCRegionState]

	publishedBottomUp [][]*ir.Instr // Region ID → keys of IncToDecMap.
	publishedTopDown  [][]*ir.Instr // Region ID → keys of DecToIncMap.
}

func newRegionStore(tree *region.Tree) *regionStore {
	return &regionStore{
		tree:              tree,
		arena:             store.NewArena[ARCRegionState](tree.Len()),
		publishedBottomUp: make([][]*ir.Instr, tree.Len()),
		publishedTopDown:  make([][]*ir.Instr, tree.Len()),
	}
}

// get returns the state of r. A region of another tree, or an ID outside
// the arena, is a contract violation.
func (rs *regionStore) get(r *region.Region) *ARCRegionState {
	if r == nil || r.Tree() != rs.tree {
		fatalf("region %v is not in the region tree of %s", r, rs.tree.Function().Name)
	}
	s, err := rs.arena.Get(r.ID())
	if err != nil {
		fatalf("no state for region %v: %v", r, err)
	}
	return s
}

// clear resets the state of r and returns the number of times r was
// cleared. The published keys of r are kept.
func (rs *regionStore) clear(r *region.Region) int {
	rs.get(r)
	rs.arena.Reset(r.ID())
	return rs.arena.Resets(r.ID())
}
