package region

import (
	"fmt"

	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/loop"
)

// Kind is the kind of a region.
type Kind int

const (
	Function Kind = iota // The root region.
	Loop                 // A natural loop.
	Block                // A single basic block.
)

func (k Kind) String() string {
	switch k {
	case Function:
		return "function"
	case Loop:
		return "loop"
	case Block:
		return "block"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Region is a node of the loop-region tree.
type Region struct {
	id     int
	kind   Kind
	parent *Region
	tree   *Tree

	children []*Region // In reverse post order.
	preds    []*Region // Intra-region edges between siblings.
	succs    []*Region
	header   *Region   // Entry child.
	exiting  []*Region // Children with an edge leaving the region.

	block *ir.Block  // Block regions only.
	loop  *loop.Info // Loop regions only.

	irreducible bool
}

// ID returns the dense identifier of the region, 0 for the root.
func (r *Region) ID() int { return r.id }

// Tree returns the tree the region belongs to.
func (r *Region) Tree() *Tree { return r.tree }

// Kind returns the kind of the region.
func (r *Region) Kind() Kind { return r.kind }

// IsLoop returns true for loop regions.
func (r *Region) IsLoop() bool { return r.kind == Loop }

// IsBlock returns true for block regions.
func (r *Region) IsBlock() bool { return r.kind == Block }

// Parent returns the enclosing region, nil for the root.
func (r *Region) Parent() *Region { return r.parent }

// Children returns the regions directly nested in r in reverse post order.
func (r *Region) Children() []*Region { return r.children }

// Preds returns the siblings with an edge into r within the parent region.
// Back edges of the parent loop are not included.
func (r *Region) Preds() []*Region { return r.preds }

// Succs returns the siblings r has an edge to within the parent region.
func (r *Region) Succs() []*Region { return r.succs }

// Header returns the child through which control enters r, nil for blocks.
func (r *Region) Header() *Region { return r.header }

// Exiting returns the children of r with an edge leaving r. For loops this
// includes the latches; for the root, the children containing a return.
func (r *Region) Exiting() []*Region { return r.exiting }

// Block returns the basic block of a block region, nil otherwise.
func (r *Region) Block() *ir.Block { return r.block }

// Loop returns the loop of a loop region, nil otherwise.
func (r *Region) Loop() *loop.Info { return r.loop }

// Irreducible returns true if the children of r have a cycle which is not
// a natural loop. Such cycles are not represented by intra-region edges.
func (r *Region) Irreducible() bool { return r.irreducible }

// Instrs returns the instructions directly contained in r. Only block
// regions contain instructions directly.
func (r *Region) Instrs() []*ir.Instr {
	if r.block == nil {
		return nil
	}
	return r.block.Instrs
}

// AllInstrs returns the instructions of r and all regions nested in it.
func (r *Region) AllInstrs() []*ir.Instr {
	if r.block != nil {
		return r.block.Instrs
	}
	var instrs []*ir.Instr
	for _, c := range r.children {
		instrs = append(instrs, c.AllInstrs()...)
	}
	return instrs
}

// Contains returns true if b belongs to r or a region nested in r.
func (r *Region) Contains(b *ir.Block) bool {
	switch r.kind {
	case Function:
		return r.tree.byBlock[b.Index] != nil
	case Loop:
		return r.loop.Contains(b)
	}
	return r.block == b
}

func (r *Region) String() string {
	switch r.kind {
	case Block:
		return fmt.Sprintf("r%d(%s)", r.id, r.block)
	case Loop:
		return fmt.Sprintf("r%d(loop@b%d)", r.id, r.loop.Header().Index)
	}
	return fmt.Sprintf("r%d(%s)", r.id, r.tree.fn.Name)
}
