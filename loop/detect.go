package loop

import (
	"io"
	"io/ioutil"
	"log"
	"sort"

	"github.com/nickng/arcseq/block"
	"github.com/nickng/arcseq/ir"
)

// Forest is the loop nest of a function.
type Forest struct {
	fn          *ir.Function
	loops       []*Info // All loops, outer loops before the loops they contain.
	top         []*Info // Outermost loops.
	loopFor     []*Info // Block index → innermost loop containing the block.
	dom         *DomTree
	irreducible bool
}

// Detector finds the natural loops of functions.
type Detector struct {
	logger *log.Logger
}

func NewDetector() *Detector {
	return &Detector{
		logger: log.New(ioutil.Discard, "loopdetect: ", 0),
	}
}

func (d *Detector) SetLog(w io.Writer) {
	d.logger.SetOutput(w)
}

// Detect finds the loop forest of fn with a default Detector.
func Detect(fn *ir.Function) *Forest {
	return NewDetector().Detect(fn)
}

// Detect finds the loop forest of fn.
func (d *Detector) Detect(fn *ir.Function) *Forest {
	rpo := block.ReversePostOrder(fn)
	num := block.Numbering(rpo, len(fn.Blocks))
	f := &Forest{
		fn:      fn,
		loopFor: make([]*Info, len(fn.Blocks)),
		dom:     Dominators(fn),
	}

	// Headers in reverse post order, so that an outer loop header always
	// comes before the headers of the loops it contains.
	headers := make(map[int]*Info)
	var order []*Info
	for _, b := range rpo {
		for _, succ := range b.Succs {
			if num[succ.Index] > num[b.Index] {
				continue // Forward edge.
			}
			if !f.dom.Dominates(succ, b) {
				d.logger.Printf("Detect: retreating edge b%d → b%d is not a back edge (irreducible)", b.Index, succ.Index)
				f.irreducible = true
				continue
			}
			l, ok := headers[succ.Index]
			if !ok {
				l = newInfo(succ, len(fn.Blocks))
				headers[succ.Index] = l
				order = append(order, l)
			}
			l.latches = append(l.latches, b)
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return num[order[i].header.Index] < num[order[j].header.Index]
	})

	for _, l := range order {
		d.collectBody(l, num)
		d.logger.Printf("Detect: %s", l)
	}

	// Nesting: walking the headers in reverse post order, the stack holds the
	// chain of loops enclosing the current header.
	scope := NewStack()
	for _, l := range order {
		if outer := scope.Unwind(l.header); outer != nil {
			l.parent = outer
			outer.children = append(outer.children, l)
		}
		if l.parent == nil {
			f.top = append(f.top, l)
			l.depth = 1
		} else {
			l.depth = l.parent.depth + 1
		}
		scope.Push(l)
		for _, b := range l.blocks {
			f.loopFor[b.Index] = l // Inner loops come later and overwrite.
		}
	}
	f.loops = order
	return f
}

// collectBody walks backwards from the latches of l up to its header.
func (d *Detector) collectBody(l *Info, num []int) {
	l.inLoop[l.header.Index] = true
	work := make([]*ir.Block, 0, len(l.latches))
	for _, latch := range l.latches {
		if !l.inLoop[latch.Index] {
			l.inLoop[latch.Index] = true
			work = append(work, latch)
		}
	}
	for len(work) > 0 {
		b := work[len(work)-1]
		work = work[:len(work)-1]
		for _, p := range b.Preds {
			if num[p.Index] < 0 || l.inLoop[p.Index] {
				continue
			}
			l.inLoop[p.Index] = true
			work = append(work, p)
		}
	}
	for idx, in := range l.inLoop {
		if in {
			l.blocks = append(l.blocks, l.header.Parent().Blocks[idx])
		}
	}
	sort.Slice(l.blocks, func(i, j int) bool {
		return num[l.blocks[i].Index] < num[l.blocks[j].Index]
	})
}

// Function returns the function the forest was computed for.
func (f *Forest) Function() *ir.Function { return f.fn }

// Loops returns all loops, every loop before the loops nested in it.
func (f *Forest) Loops() []*Info { return f.loops }

// TopLevel returns the outermost loops.
func (f *Forest) TopLevel() []*Info { return f.top }

// Len returns the number of loops.
func (f *Forest) Len() int { return len(f.loops) }

// PostOrder returns all loops, innermost first: every loop comes after all
// of the loops nested in it.
func (f *Forest) PostOrder() []*Info {
	var po []*Info
	var visit func(l *Info)
	visit = func(l *Info) {
		for _, c := range l.children {
			visit(c)
		}
		po = append(po, l)
	}
	for _, l := range f.top {
		visit(l)
	}
	return po
}

// LoopFor returns the innermost loop containing b, or nil.
func (f *Forest) LoopFor(b *ir.Block) *Info {
	return f.loopFor[b.Index]
}

// LoopAt returns the loop with header b, or nil.
func (f *Forest) LoopAt(b *ir.Block) *Info {
	if l := f.loopFor[b.Index]; l != nil && l.header == b {
		return l
	}
	return nil
}

// Dom returns the dominator tree used to find the loops.
func (f *Forest) Dom() *DomTree { return f.dom }

// Irreducible returns true if the function has a cycle which is not a
// natural loop.
func (f *Forest) Irreducible() bool { return f.irreducible }
