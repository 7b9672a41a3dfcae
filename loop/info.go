package loop

import (
	"bytes"
	"fmt"

	"github.com/nickng/arcseq/ir"
)

// Info is a data structure to hold loop information: the header, the blocks
// of the natural loop, and the position of the loop in the loop nest.
type Info struct {
	header  *ir.Block
	blocks  []*ir.Block // Loop blocks in reverse post order, header first.
	latches []*ir.Block // Sources of the back edges.
	inLoop  []bool      // Block index → member of the loop.

	parent   *Info
	children []*Info
	depth    int // Outermost loops have depth 1.
}

func newInfo(header *ir.Block, nBlocks int) *Info {
	return &Info{
		header: header,
		inLoop: make([]bool, nBlocks),
	}
}

// Header returns the loop header, the only entry of the loop.
func (i *Info) Header() *ir.Block { return i.header }

// Blocks returns the blocks of the loop, including those of nested loops.
func (i *Info) Blocks() []*ir.Block { return i.blocks }

// Latches returns the blocks with a back edge to the header.
func (i *Info) Latches() []*ir.Block { return i.latches }

// Parent returns the immediately enclosing loop, or nil.
func (i *Info) Parent() *Info { return i.parent }

// Children returns the loops immediately nested in this loop.
func (i *Info) Children() []*Info { return i.children }

// Depth returns the nesting depth of the loop, 1 for outermost loops.
func (i *Info) Depth() int { return i.depth }

// Contains returns true if b is in the loop (or one of its nested loops).
func (i *Info) Contains(b *ir.Block) bool {
	return b.Index < len(i.inLoop) && i.inLoop[b.Index]
}

func (i *Info) String() string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("loop@b%d {", i.header.Index))
	for n, b := range i.blocks {
		if n > 0 {
			buf.WriteString(" ")
		}
		buf.WriteString(fmt.Sprintf("b%d", b.Index))
	}
	buf.WriteString("} latches:")
	for _, b := range i.latches {
		buf.WriteString(fmt.Sprintf(" b%d", b.Index))
	}
	return buf.String()
}
