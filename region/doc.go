// Package region builds the loop-region tree of a function.
//
// The whole function is the root region, every natural loop is a region
// nested in the region of its enclosing loop, and every block is a leaf
// region in the region of its innermost loop. Regions are numbered densely
// from 0 (the root) so per-region data can live in a slice.
package region
