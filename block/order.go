package block

import "github.com/nickng/arcseq/ir"

// PostOrder returns the blocks reachable from the entry in depth-first post
// order. Successors are explored in edge order.
func PostOrder(fn *ir.Function) []*ir.Block {
	if len(fn.Blocks) == 0 {
		return nil
	}
	var (
		order   []*ir.Block
		visited = make([]bool, len(fn.Blocks))
	)
	type frame struct {
		b    *ir.Block
		next int // Next successor to explore.
	}
	stack := []frame{{b: fn.Blocks[0]}}
	visited[0] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.b.Succs) {
			succ := top.b.Succs[top.next]
			top.next++
			if !visited[succ.Index] {
				visited[succ.Index] = true
				stack = append(stack, frame{b: succ})
			}
			continue
		}
		order = append(order, top.b)
		stack = stack[:len(stack)-1]
	}
	return order
}

// ReversePostOrder returns the blocks reachable from the entry in reverse
// post order, so that the entry comes first and, ignoring back edges, every
// block comes after all of its predecessors.
func ReversePostOrder(fn *ir.Function) []*ir.Block {
	po := PostOrder(fn)
	rpo := make([]*ir.Block, len(po))
	for i, b := range po {
		rpo[len(po)-1-i] = b
	}
	return rpo
}

// Numbering returns the reverse post order number of each block indexed by
// block index, -1 for unreachable blocks.
func Numbering(rpo []*ir.Block, nBlocks int) []int {
	num := make([]int, nBlocks)
	for i := range num {
		num[i] = -1
	}
	for i, b := range rpo {
		num[b.Index] = i
	}
	return num
}
