package region

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/nickng/arcseq/block"
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/loop"
)

// Tree is the loop-region tree of a function.
type Tree struct {
	fn      *ir.Function
	forest  *loop.Forest
	regions []*Region // By ID.
	byBlock []*Region // Block index → block region, nil if unreachable.
	byLoop  map[*loop.Info]*Region
	num     []int // Block index → reverse post order number.
}

// Build creates the region tree of fn from its loop forest.
// The forest must have been computed for fn.
func Build(fn *ir.Function, forest *loop.Forest) *Tree {
	if forest.Function() != fn {
		log.Fatalf("region.Build: loop forest of %s used for %s", forest.Function().Name, fn.Name)
	}
	rpo := block.ReversePostOrder(fn)
	t := &Tree{
		fn:      fn,
		forest:  forest,
		byBlock: make([]*Region, len(fn.Blocks)),
		byLoop:  make(map[*loop.Info]*Region),
		num:     block.Numbering(rpo, len(fn.Blocks)),
	}
	root := t.newRegion(Function, nil)
	t.populate(root, nil, rpo)
	return t
}

func (t *Tree) newRegion(kind Kind, parent *Region) *Region {
	r := &Region{id: len(t.regions), kind: kind, parent: parent, tree: t}
	t.regions = append(t.regions, r)
	if parent != nil {
		parent.children = append(parent.children, r)
	}
	return r
}

// populate creates the children of scope, the region of loop l (nil for the
// root), in reverse post order, then the edges between them.
func (t *Tree) populate(scope *Region, l *loop.Info, rpo []*ir.Block) {
	for _, b := range rpo {
		inner := t.forest.LoopFor(b)
		switch {
		case inner == l:
			r := t.newRegion(Block, scope)
			r.block = b
			t.byBlock[b.Index] = r
		case inner.Header() == b && inner.Parent() == l:
			r := t.newRegion(Loop, scope)
			r.loop = inner
			t.byLoop[inner] = r
			t.populate(r, inner, t.inLoop(rpo, inner))
		}
	}
	t.connect(scope, l, rpo)
}

func (t *Tree) inLoop(rpo []*ir.Block, l *loop.Info) []*ir.Block {
	var blocks []*ir.Block
	for _, b := range rpo {
		if l.Contains(b) {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// childFor returns the child of scope (the region of loop l) containing b.
func (t *Tree) childFor(l *loop.Info, b *ir.Block) *Region {
	inner := t.forest.LoopFor(b)
	if inner == l {
		return t.byBlock[b.Index]
	}
	for inner.Parent() != l {
		inner = inner.Parent()
	}
	return t.byLoop[inner]
}

func (t *Tree) connect(scope *Region, l *loop.Info, blocks []*ir.Block) {
	var headerBlock *ir.Block
	if l != nil {
		headerBlock = l.Header()
	} else {
		headerBlock = t.fn.Entry()
	}
	if headerBlock == nil {
		return // No body.
	}
	scope.header = t.childFor(l, headerBlock)

	exiting := make(map[*Region]bool)
	for _, b := range blocks {
		from := t.childFor(l, b)
		if l == nil && len(b.Succs) == 0 {
			exiting[from] = true
		}
		for _, s := range b.Succs {
			if !scope.Contains(s) {
				exiting[from] = true
				continue
			}
			if l != nil && s == headerBlock {
				exiting[from] = true // Back edge.
				continue
			}
			to := t.childFor(l, s)
			if from == to {
				continue // Inside a child loop.
			}
			if t.num[s.Index] <= t.num[b.Index] {
				scope.irreducible = true
				continue
			}
			addEdge(from, to)
		}
	}
	for _, c := range scope.children {
		if exiting[c] {
			scope.exiting = append(scope.exiting, c)
		}
	}
}

func addEdge(from, to *Region) {
	for _, s := range from.succs {
		if s == to {
			return
		}
	}
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}

// Function returns the function of the tree.
func (t *Tree) Function() *ir.Function { return t.fn }

// Forest returns the loop forest the tree was built from.
func (t *Tree) Forest() *loop.Forest { return t.forest }

// Root returns the function region.
func (t *Tree) Root() *Region { return t.regions[0] }

// Len returns the number of regions, one more than the largest ID.
func (t *Tree) Len() int { return len(t.regions) }

// Region returns the region with the given ID.
func (t *Tree) Region(id int) *Region { return t.regions[id] }

// Regions returns all regions by ID.
func (t *Tree) Regions() []*Region { return t.regions }

// RegionFor returns the block region of b, nil if b is unreachable.
func (t *Tree) RegionFor(b *ir.Block) *Region { return t.byBlock[b.Index] }

// LoopRegion returns the region of loop l.
func (t *Tree) LoopRegion(l *loop.Info) *Region { return t.byLoop[l] }

// Loops returns the loop regions, innermost first.
func (t *Tree) Loops() []*Region {
	var loops []*Region
	for _, l := range t.forest.PostOrder() {
		loops = append(loops, t.byLoop[l])
	}
	return loops
}

// WriteTo writes the region tree to w, one region per line.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	var write func(r *Region, depth int)
	write = func(r *Region, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(r.String())
		if r.irreducible {
			sb.WriteString(" irreducible")
		}
		if len(r.succs) > 0 {
			sb.WriteString(" →")
			for _, s := range r.succs {
				sb.WriteString(fmt.Sprintf(" r%d", s.id))
			}
		}
		sb.WriteString("\n")
		for _, c := range r.children {
			write(c, depth+1)
		}
	}
	write(t.Root(), 0)
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}
