package loop

import "github.com/nickng/arcseq/ir"

// Stack is the chain of loops enclosing a loop header, outermost at the
// bottom.
type Stack struct {
	s []*Info
}

// NewStack creates a new Stack.
func NewStack() *Stack {
	return &Stack{s: []*Info{}}
}

// Push adds a new Info to the top of stack.
func (s *Stack) Push(i *Info) {
	s.s = append(s.s, i)
}

// Unwind pops the loops which do not contain b, and returns the innermost
// remaining loop, nil if none is left.
func (s *Stack) Unwind(b *ir.Block) *Info {
	for len(s.s) > 0 {
		if top := s.s[len(s.s)-1]; top.Contains(b) {
			return top
		}
		s.s = s.s[:len(s.s)-1]
	}
	return nil
}

// Len returns the number of loops on the stack.
func (s *Stack) Len() int { return len(s.s) }
