// Package ir is a small intermediate representation for reference counted
// programs, the input of the ARC sequence dataflow.
//
// A Function is a list of basic blocks, the first block being the entry.
// Blocks hold Instrs and carry explicit predecessor and successor edges;
// terminators are implicit in the edges, a block without successors is an
// exit of the function.
//
// Only a handful of operations are relevant to reference counting:
//
//  - OpRetain increments the count of its operand (an "increment")
//  - OpRelease decrements the count of its operand (a "decrement")
//  - OpStore, OpCall and OpReturn may transfer or drop ownership
//  - OpUse, OpLoad read a value
//  - OpAlloc, OpCast, OpProject, OpPhi define new values
//
// Functions are usually produced by package lower from go/ssa, or built
// directly with the builder methods in tests.
//
package ir
