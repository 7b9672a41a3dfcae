package arc

import (
	"github.com/nickng/arcseq/block"
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/rcid"
)

// ConsumedArgToEpilogueReleaseMap maps each consumed argument of a function
// to the releases discharging its ownership at the exits of the function,
// one release per exit block.
type ConsumedArgToEpilogueReleaseMap struct {
	args     []*ir.Parameter
	releases map[*ir.Parameter][]*ir.Instr // Ordered by ID.
	argOf    map[*ir.Instr]*ir.Parameter
}

// computePostDominatingConsumedArgMap scans every reachable exit block of fn
// backwards from its end, collecting releases of consumed arguments until
// an operation touching a consumed argument, a store or a call is found.
// An argument is kept only if every exit block releases it exactly once.
func computePostDominatingConsumedArgMap(fn *ir.Function, rc rcid.Oracle) *ConsumedArgToEpilogueReleaseMap {
	m := &ConsumedArgToEpilogueReleaseMap{
		releases: make(map[*ir.Parameter][]*ir.Instr),
		argOf:    make(map[*ir.Instr]*ir.Parameter),
	}
	consumed := make(map[ir.Value]*ir.Parameter)
	for _, p := range fn.Params {
		if p.Consumed {
			consumed[p] = p
		}
	}
	var exits []*ir.Block
	reachable := block.Reachable(fn)
	for _, b := range fn.Exits() {
		if reachable[b.Index] {
			exits = append(exits, b)
		}
	}
	if len(consumed) == 0 || len(exits) == 0 {
		return m
	}

	perExit := make(map[*ir.Parameter][]*ir.Instr)
	ambiguous := make(map[*ir.Parameter]bool)
	for _, b := range exits {
		found := make(map[*ir.Parameter]*ir.Instr)
	SCAN:
		for k := len(b.Instrs) - 1; k >= 0; k-- {
			instr := b.Instrs[k]
			if instr.IsDecrement() {
				if p, ok := consumed[rcid.RootOf(rc, instr)]; ok {
					if _, dup := found[p]; dup {
						ambiguous[p] = true
						continue
					}
					found[p] = instr
					continue
				}
			}
			switch instr.Op {
			case ir.OpStore, ir.OpCall:
				break SCAN
			}
			for _, arg := range instr.Args {
				if _, ok := consumed[rc.Root(arg)]; ok {
					break SCAN
				}
			}
		}
		for p, r := range found {
			perExit[p] = append(perExit[p], r)
		}
	}

	for _, p := range fn.Params {
		rs := perExit[p]
		if !p.Consumed || ambiguous[p] || len(rs) != len(exits) {
			continue
		}
		sortInstrs(rs)
		m.args = append(m.args, p)
		m.releases[p] = rs
		for _, r := range rs {
			m.argOf[r] = p
		}
	}
	return m
}

// Args returns the consumed arguments with epilogue releases in parameter
// order.
func (m *ConsumedArgToEpilogueReleaseMap) Args() []*ir.Parameter { return m.args }

// Releases returns the epilogue releases of p ordered by ID, nil if p has
// none.
func (m *ConsumedArgToEpilogueReleaseMap) Releases(p *ir.Parameter) []*ir.Instr {
	return m.releases[p]
}

// ArgFor returns the argument discharged by the epilogue release instr,
// nil if instr is not an epilogue release.
func (m *ConsumedArgToEpilogueReleaseMap) ArgFor(instr *ir.Instr) *ir.Parameter {
	return m.argOf[instr]
}

// IsEpilogueRelease returns true if instr is an epilogue release.
func (m *ConsumedArgToEpilogueReleaseMap) IsEpilogueRelease(instr *ir.Instr) bool {
	_, ok := m.argOf[instr]
	return ok
}

// Len returns the number of arguments in the map.
func (m *ConsumedArgToEpilogueReleaseMap) Len() int { return len(m.args) }
