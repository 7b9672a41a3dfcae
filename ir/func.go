package ir

import "fmt"

// Function is the unit of analysis.
type Function struct {
	Name   string
	Params []*Parameter
	Blocks []*Block // Blocks[0] is the entry block.

	nInstrs int // Instruction ID counter.
	nValues int // Result name counter.
}

// NewFunction returns an empty Function.
func NewFunction(name string) *Function {
	return &Function{Name: name}
}

// AddParam appends a new parameter to the function signature.
func (f *Function) AddParam(name string, consumed bool) *Parameter {
	p := &Parameter{name: name, index: len(f.Params), Consumed: consumed, parent: f}
	f.Params = append(f.Params, p)
	return p
}

// Param returns the parameter with the given name, or nil.
func (f *Function) Param(name string) *Parameter {
	for _, p := range f.Params {
		if p.name == name {
			return p
		}
	}
	return nil
}

// NewBlock appends a new empty block to the function.
func (f *Function) NewBlock(comment string) *Block {
	b := &Block{Index: len(f.Blocks), Comment: comment, parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// Entry returns the entry block, or nil for a function without body.
func (f *Function) Entry() *Block {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// Exits returns the blocks without successors in block order.
func (f *Function) Exits() []*Block {
	var exits []*Block
	for _, b := range f.Blocks {
		if len(b.Succs) == 0 {
			exits = append(exits, b)
		}
	}
	return exits
}

// NumInstrs returns the number of instructions ever created in f, i.e. an
// upper bound of Instr.ID.
func (f *Function) NumInstrs() int { return f.nInstrs }

// Instrs returns all instructions of f in block order.
func (f *Function) Instrs() []*Instr {
	var instrs []*Instr
	for _, b := range f.Blocks {
		instrs = append(instrs, b.Instrs...)
	}
	return instrs
}

// Jump adds the edge from → to.
func (f *Function) Jump(from, to *Block) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// If adds the two-way branch from → then, from → els.
func (f *Function) If(from, then, els *Block) {
	f.Jump(from, then)
	f.Jump(from, els)
}

func (f *Function) String() string {
	return fmt.Sprintf("func %s (%d blocks)", f.Name, len(f.Blocks))
}

// Block is a basic block.
type Block struct {
	Index   int    // Position in Function.Blocks.
	Comment string // Optional description, e.g. "for.body".
	Instrs  []*Instr
	Preds   []*Block
	Succs   []*Block

	parent *Function
}

// Parent returns the function containing b.
func (b *Block) Parent() *Function { return b.parent }

func (b *Block) String() string {
	if b.Comment != "" {
		return fmt.Sprintf("b%d (%s)", b.Index, b.Comment)
	}
	return fmt.Sprintf("b%d", b.Index)
}

// Emit appends a new instruction to b.
func (b *Block) Emit(op Op, args ...Value) *Instr {
	f := b.parent
	i := &Instr{
		ID:    f.nInstrs,
		Op:    op,
		Args:  args,
		block: b,
		index: len(b.Instrs),
	}
	f.nInstrs++
	if op.HasResult() {
		i.name = fmt.Sprintf("t%d", f.nValues)
		f.nValues++
	}
	b.Instrs = append(b.Instrs, i)
	return i
}

// Alloc emits a new object allocation.
func (b *Block) Alloc() *Instr { return b.Emit(OpAlloc) }

// Retain emits an increment of v.
func (b *Block) Retain(v Value) *Instr { return b.Emit(OpRetain, v) }

// Release emits a decrement of v.
func (b *Block) Release(v Value) *Instr { return b.Emit(OpRelease, v) }

// Use emits a read of vs.
func (b *Block) Use(vs ...Value) *Instr { return b.Emit(OpUse, vs...) }

// Load emits a load from addr.
func (b *Block) Load(addr Value) *Instr { return b.Emit(OpLoad, addr) }

// Store emits a store of val to addr.
func (b *Block) Store(addr, val Value) *Instr { return b.Emit(OpStore, addr, val) }

// Project emits the address of a component of x.
func (b *Block) Project(x Value) *Instr { return b.Emit(OpProject, x) }

// Cast emits a conversion of x.
func (b *Block) Cast(x Value) *Instr { return b.Emit(OpCast, x) }

// Phi emits a merge of xs.
func (b *Block) Phi(xs ...Value) *Instr { return b.Emit(OpPhi, xs...) }

// Call emits a call to callee. consumes may be nil or have one entry per
// argument.
func (b *Block) Call(callee string, args []Value, consumes []bool) *Instr {
	i := b.Emit(OpCall, args...)
	i.Callee = callee
	i.Consumes = consumes
	return i
}

// Return emits a return of results.
func (b *Block) Return(results ...Value) *Instr { return b.Emit(OpReturn, results...) }
