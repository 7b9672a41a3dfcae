package arc

import (
	"fmt"
	"io"
	"sort"

	"github.com/nickng/arcseq/ir"
)

// Match is an increment and a decrement of the same object which can be
// removed together.
type Match struct {
	Increment *ir.Instr
	Decrement *ir.Instr
}

func (m Match) String() string {
	return fmt.Sprintf("%s ↔ %s", m.Increment.Label(), m.Decrement.Label())
}

// Matches returns the pairs on which both maps agree: the bottom-up state
// of the increment names the decrement, and the top-down state of the
// decrement names the increment. Pairs are ordered by increment then
// decrement.
func Matches(decToInc *DecToIncMap, incToDec *IncToDecMap) []Match {
	var matches []Match
	incToDec.Range(func(inc *ir.Instr, bu BottomUpRefCountState) bool {
		for _, dec := range bu.Decrements() {
			td, ok := decToInc.Get(dec)
			if ok && containsInstr(td.Increments(), inc) && containsInstr(bu.Increments(), inc) {
				matches = append(matches, Match{Increment: inc, Decrement: dec})
			}
		}
		return true
	})
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Increment.ID != matches[j].Increment.ID {
			return matches[i].Increment.ID < matches[j].Increment.ID
		}
		return matches[i].Decrement.ID < matches[j].Decrement.ID
	})
	return matches
}

// WriteMaps writes the entries of both maps to w in insertion order.
func WriteMaps(w io.Writer, decToInc *DecToIncMap, incToDec *IncToDecMap) error {
	var err error
	incToDec.Range(func(inc *ir.Instr, s BottomUpRefCountState) bool {
		_, err = fmt.Fprintf(w, "inc %s: %s\n", inc.Label(), s)
		return err == nil
	})
	if err != nil {
		return err
	}
	decToInc.Range(func(dec *ir.Instr, s TopDownRefCountState) bool {
		_, err = fmt.Fprintf(w, "dec %s: %s\n", dec.Label(), s)
		return err == nil
	})
	return err
}
