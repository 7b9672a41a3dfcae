package ir

import (
	"bytes"
	"fmt"
)

// Op is the kind of an instruction.
type Op int

const (
	OpInvalid Op = iota
	OpAlloc       // Allocate a new object (result at +1).
	OpRetain      // Increment the reference count of Args[0].
	OpRelease     // Decrement the reference count of Args[0].
	OpUse         // Read Args without consuming them.
	OpLoad        // Load from address Args[0].
	OpStore       // Store Args[1] to address Args[0].
	OpProject     // Address of a field or element of Args[0].
	OpCast        // Conversion of Args[0], same object.
	OpPhi         // Merge of Args along incoming edges.
	OpCall        // Call with Args, Consumes marks +1 arguments.
	OpReturn      // Return Args to the caller at +1.
)

var opNames = [...]string{
	OpInvalid: "invalid",
	OpAlloc:   "alloc",
	OpRetain:  "retain",
	OpRelease: "release",
	OpUse:     "use",
	OpLoad:    "load",
	OpStore:   "store",
	OpProject: "project",
	OpCast:    "cast",
	OpPhi:     "phi",
	OpCall:    "call",
	OpReturn:  "return",
}

func (op Op) String() string {
	if op >= 0 && int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// HasResult returns true if instructions of this kind define a value.
func (op Op) HasResult() bool {
	switch op {
	case OpAlloc, OpLoad, OpProject, OpCast, OpPhi, OpCall:
		return true
	}
	return false
}

// Instr is an instruction in a Block.
//
// An Instr that defines a result is also a Value.
type Instr struct {
	ID       int     // Unique (within the function) and increasing in creation order.
	Op       Op      // Kind of instruction.
	Args     []Value // Operands.
	Consumes []bool  // For OpCall: Consumes[i] is true if Args[i] is passed at +1.
	Callee   string  // For OpCall: name of the called function, if known.
	Comment  string  // Optional annotation, e.g. the source position.

	name  string
	block *Block
	index int
}

// Name returns the name of the result, or the empty string if the
// instruction does not define a value.
func (i *Instr) Name() string { return i.name }

// Block returns the block containing the instruction.
func (i *Instr) Block() *Block { return i.block }

// Index returns the position of the instruction in its block.
func (i *Instr) Index() int { return i.index }

// Operand returns the first operand, or nil.
func (i *Instr) Operand() Value {
	if len(i.Args) == 0 {
		return nil
	}
	return i.Args[0]
}

// IsIncrement returns true for reference count increments.
func (i *Instr) IsIncrement() bool { return i.Op == OpRetain }

// IsDecrement returns true for reference count decrements.
func (i *Instr) IsDecrement() bool { return i.Op == OpRelease }

// Consumed returns true if the n-th argument of a call is passed at +1.
func (i *Instr) Consumed(n int) bool {
	return n < len(i.Consumes) && i.Consumes[n]
}

func (i *Instr) String() string {
	var buf bytes.Buffer
	if i.name != "" {
		buf.WriteString(fmt.Sprintf("%s = ", i.name))
	}
	buf.WriteString(i.Op.String())
	if i.Op == OpCall && i.Callee != "" {
		buf.WriteString(" " + i.Callee)
	}
	for n, arg := range i.Args {
		if n > 0 {
			buf.WriteString(",")
		}
		buf.WriteString(" " + arg.Name())
		if i.Consumed(n) {
			buf.WriteString("^")
		}
	}
	return buf.String()
}

// Label returns a short, position-qualified description of the instruction,
// e.g. "release x @b2:3".
func (i *Instr) Label() string {
	if i.block == nil {
		return fmt.Sprintf("%s #%d", i.String(), i.ID)
	}
	return fmt.Sprintf("%s @b%d:%d", i.String(), i.block.Index, i.index)
}
