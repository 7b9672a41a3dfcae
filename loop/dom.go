package loop

import (
	"github.com/nickng/arcseq/block"
	"github.com/nickng/arcseq/ir"
)

// DomTree is the dominator tree of the reachable blocks of a function.
type DomTree struct {
	idom []int // Block index → immediate dominator block index, -1 if none.
	num  []int // Block index → reverse post order number, -1 if unreachable.
}

// Dominators computes the dominator tree of fn using the iterative
// algorithm of Cooper, Harvey and Kennedy over the reverse post order.
func Dominators(fn *ir.Function) *DomTree {
	rpo := block.ReversePostOrder(fn)
	d := &DomTree{
		idom: make([]int, len(fn.Blocks)),
		num:  block.Numbering(rpo, len(fn.Blocks)),
	}
	for i := range d.idom {
		d.idom[i] = -1
	}
	if len(rpo) == 0 {
		return d
	}
	entry := rpo[0].Index
	d.idom[entry] = entry
	for changed := true; changed; {
		changed = false
		for _, b := range rpo[1:] {
			newIdom := -1
			for _, p := range b.Preds {
				if d.idom[p.Index] < 0 {
					continue // Unreachable or not processed yet.
				}
				if newIdom < 0 {
					newIdom = p.Index
					continue
				}
				newIdom = d.intersect(p.Index, newIdom)
			}
			if newIdom >= 0 && d.idom[b.Index] != newIdom {
				d.idom[b.Index] = newIdom
				changed = true
			}
		}
	}
	d.idom[entry] = -1
	return d
}

func (d *DomTree) intersect(b1, b2 int) int {
	for b1 != b2 {
		for d.num[b1] > d.num[b2] {
			b1 = d.idomOrSelf(b1)
		}
		for d.num[b2] > d.num[b1] {
			b2 = d.idomOrSelf(b2)
		}
	}
	return b1
}

// idomOrSelf is idom during the fixpoint, where the entry points to itself.
func (d *DomTree) idomOrSelf(b int) int {
	if d.idom[b] < 0 {
		return b
	}
	return d.idom[b]
}

// Idom returns the immediate dominator of b, or -1 for the entry block and
// unreachable blocks.
func (d *DomTree) Idom(b *ir.Block) int {
	return d.idom[b.Index]
}

// Reachable returns true if b is reachable from the entry.
func (d *DomTree) Reachable(b *ir.Block) bool {
	return d.num[b.Index] >= 0
}

// Dominates returns true if a dominates b. Every block dominates itself.
// Unreachable blocks are dominated by nothing but themselves.
func (d *DomTree) Dominates(a, b *ir.Block) bool {
	if a == b {
		return true
	}
	if !d.Reachable(a) || !d.Reachable(b) {
		return false
	}
	for x := d.idom[b.Index]; x >= 0; x = d.idom[x] {
		if x == a.Index {
			return true
		}
	}
	return false
}
