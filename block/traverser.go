// Package block provides traversal utilities over the blocks of an
// ir.Function.
package block

import (
	"github.com/nickng/arcseq/ir"
)

// TraverseEdges takes a Function and apply visit to each edge, in breadth
// first order from the entry block. The entry block is visited with a nil
// from block. Every reachable block is entered exactly once, further edges
// into an entered block are still visited but not followed.
func TraverseEdges(fn *ir.Function, visit func(from, to *ir.Block)) {
	if len(fn.Blocks) == 0 {
		return
	}
	type Edge struct {
		From, To *ir.Block
	}
	entered := make([]bool, len(fn.Blocks))
	queue := []Edge{{To: fn.Blocks[0]}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		visit(e.From, e.To)
		if !entered[e.To.Index] {
			entered[e.To.Index] = true
			for _, succ := range e.To.Succs {
				queue = append(queue, Edge{From: e.To, To: succ})
			}
		}
	}
}

// Reachable returns a slice indexed by block index, true for every block
// reachable from the entry.
func Reachable(fn *ir.Function) []bool {
	reached := make([]bool, len(fn.Blocks))
	TraverseEdges(fn, func(_, to *ir.Block) {
		reached[to.Index] = true
	})
	return reached
}
