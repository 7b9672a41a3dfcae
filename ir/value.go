package ir

import "fmt"

// Value is anything an instruction can take as operand.
type Value interface {
	Name() string   // Short name, unique within the function.
	String() string // Description of the value.
}

// Parameter is a formal parameter of a Function.
//
// A Consumed parameter is passed at +1: the function owns one reference of the
// argument and must release it (or transfer it) before returning.
type Parameter struct {
	name     string
	index    int
	Consumed bool
	parent   *Function
}

func (p *Parameter) Name() string { return p.name }

// Index returns the position of the parameter in the signature.
func (p *Parameter) Index() int { return p.index }

// Parent returns the function the parameter belongs to.
func (p *Parameter) Parent() *Function { return p.parent }

func (p *Parameter) String() string {
	if p.Consumed {
		return fmt.Sprintf("param %s (consumed)", p.name)
	}
	return fmt.Sprintf("param %s", p.name)
}

// Global is a value defined outside of the function, e.g. a package variable
// or a captured free variable. Its storage is not owned by the function.
type Global struct {
	name string
}

// NewGlobal returns a new Global named name.
func NewGlobal(name string) *Global {
	return &Global{name: name}
}

func (g *Global) Name() string   { return g.name }
func (g *Global) String() string { return fmt.Sprintf("global %s", g.name) }
