package arc

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/nickng/arcseq/ir"
)

// LatticeState is the position of a RefCountState in the lattice.
type LatticeState int

const (
	Bottom      LatticeState = iota // No information, identity of Meet.
	Tracking                        // Searching for, or matched to, a partner.
	Invalidated                     // No match possible, absorbs in Meet.
)

func (l LatticeState) String() string {
	switch l {
	case Bottom:
		return "⊥"
	case Tracking:
		return "tracking"
	case Invalidated:
		return "invalidated"
	}
	return fmt.Sprintf("lattice(%d)", int(l))
}

// RefCountState is the matching state of one seed: a decrement (bottom-up),
// an increment (top-down), or the group of epilogue releases of a consumed
// argument (bottom-up).
type RefCountState struct {
	Lattice  LatticeState
	Root     ir.Value    // Identity root of the seed.
	Seeds    []*ir.Instr // Seed operations ordered by ID.
	Partners []*ir.Instr // Confirmed partners ordered by ID, empty while searching.
	Depth    int         // Unmatched nested pairs between the seed and the current point.
	Covering bool        // The seed pair is nested inside an outstanding pair.
	Arg      *ir.Parameter
	Frozen   bool // Epilogue state which may not be matched.
}

// Key returns the operation which identifies the state in a state set.
func (s RefCountState) Key() *ir.Instr {
	if len(s.Seeds) == 0 {
		return nil
	}
	return s.Seeds[0]
}

// IsSearching returns true if the state may still find a partner.
func (s RefCountState) IsSearching() bool {
	return s.Lattice == Tracking && len(s.Partners) == 0
}

// IsMatched returns true if the state has confirmed partners.
func (s RefCountState) IsMatched() bool {
	return s.Lattice == Tracking && len(s.Partners) > 0
}

// IsEpilogue returns true if the state was seeded from epilogue releases.
func (s RefCountState) IsEpilogue() bool { return s.Arg != nil }

func (s RefCountState) invalidate() RefCountState {
	s.Lattice = Invalidated
	s.Partners = nil
	s.Depth = 0
	s.Covering = false
	return s
}

// Meet returns the merge of s and t, the states of the same seed on two
// incoming paths. A partner survives only if it is confirmed on both paths.
func Meet(s, t RefCountState) RefCountState {
	switch {
	case s.Lattice == Bottom:
		return t
	case t.Lattice == Bottom:
		return s
	case s.Lattice == Invalidated:
		return s
	case t.Lattice == Invalidated:
		return t
	}
	switch {
	case s.IsSearching() && t.IsSearching():
		if s.Depth != t.Depth {
			return s.invalidate()
		}
		s.Covering = s.Covering && t.Covering
		return s
	case s.IsMatched() && t.IsMatched():
		common := intersect(s.Partners, t.Partners)
		if len(common) == 0 {
			return s.invalidate()
		}
		s.Partners = common
		s.Covering = s.Covering && t.Covering
		return s
	}
	return s.invalidate()
}

// Equal returns true if s and t are the same state.
func (s RefCountState) Equal(t RefCountState) bool {
	return s.Lattice == t.Lattice &&
		s.Root == t.Root &&
		sameInstrs(s.Seeds, t.Seeds) &&
		sameInstrs(s.Partners, t.Partners) &&
		s.Depth == t.Depth &&
		s.Covering == t.Covering &&
		s.Arg == t.Arg &&
		s.Frozen == t.Frozen
}

func (s RefCountState) String() string {
	var buf bytes.Buffer
	buf.WriteString(s.Lattice.String())
	if s.Lattice == Bottom {
		return buf.String()
	}
	buf.WriteString(" {")
	writeInstrs(&buf, s.Seeds)
	buf.WriteString("}")
	if s.IsMatched() {
		buf.WriteString(" ↔ {")
		writeInstrs(&buf, s.Partners)
		buf.WriteString("}")
	}
	if s.Depth > 0 {
		buf.WriteString(fmt.Sprintf(" depth=%d", s.Depth))
	}
	if s.Covering {
		buf.WriteString(" covering")
	}
	if s.Arg != nil {
		buf.WriteString(" epilogue(" + s.Arg.Name() + ")")
	}
	if s.Frozen {
		buf.WriteString(" frozen")
	}
	return buf.String()
}

func writeInstrs(buf *bytes.Buffer, instrs []*ir.Instr) {
	for i, instr := range instrs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(instr.Label())
	}
}

// BottomUpRefCountState is the state of a decrement seed scanning backward.
type BottomUpRefCountState struct{ RefCountState }

// Decrements returns the seed decrements.
func (s BottomUpRefCountState) Decrements() []*ir.Instr { return s.Seeds }

// Increments returns the increments matched to the seed.
func (s BottomUpRefCountState) Increments() []*ir.Instr { return s.Partners }

// TopDownRefCountState is the state of an increment seed scanning forward.
type TopDownRefCountState struct{ RefCountState }

// Increments returns the seed increment.
func (s TopDownRefCountState) Increments() []*ir.Instr { return s.Seeds }

// Decrements returns the decrements matched to the seed.
func (s TopDownRefCountState) Decrements() []*ir.Instr { return s.Partners }

// stateSet is the set of states at a program point, keyed by seed.
type stateSet map[*ir.Instr]RefCountState

// keys returns the seeds of the set ordered by ID.
func (s stateSet) keys() []*ir.Instr {
	keys := make([]*ir.Instr, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sortInstrs(keys)
	return keys
}

func (s stateSet) clone() stateSet {
	c := make(stateSet, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// meetSets merges the state sets of incoming edges. A seed absent from an
// edge is Bottom on that edge.
func meetSets(sets []stateSet) stateSet {
	switch len(sets) {
	case 0:
		return make(stateSet)
	case 1:
		return sets[0].clone()
	}
	merged := sets[0].clone()
	for _, set := range sets[1:] {
		for k, v := range set {
			merged[k] = Meet(merged[k], v)
		}
	}
	return merged
}

// searching returns the subset of states still searching.
func (s stateSet) searching() stateSet {
	out := make(stateSet)
	for k, v := range s {
		if v.IsSearching() {
			out[k] = v
		}
	}
	return out
}

func sortInstrs(instrs []*ir.Instr) {
	sort.Slice(instrs, func(i, j int) bool { return instrs[i].ID < instrs[j].ID })
}

// intersect returns the instructions in both a and b, both ordered by ID.
func intersect(a, b []*ir.Instr) []*ir.Instr {
	var out []*ir.Instr
	for i, j := 0, 0; i < len(a) && j < len(b); {
		switch {
		case a[i].ID < b[j].ID:
			i++
		case a[i].ID > b[j].ID:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func sameInstrs(a, b []*ir.Instr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsInstr(instrs []*ir.Instr, instr *ir.Instr) bool {
	for _, i := range instrs {
		if i == instr {
			return true
		}
	}
	return false
}
