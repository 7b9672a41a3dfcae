// Package ssa is a library to build and work with SSA.
// For most part the package contains helper or wrapper functions to use the
// packages in Go project's extra tools.
//
// In particular, the SSA IR is from golang.org/x/tools/go/ssa. The package
// under analysis is built with bodies; its imports are created from type
// information only.
package ssa

import (
	"go/ast"
	"go/token"
	"io"

	"golang.org/x/tools/go/ssa"
)

// Info holds the results of a SSA build for analysis.
// To populate this structure, the 'build' subpackage should be used.
type Info struct {
	FSet  *token.FileSet // FileSet for parsed source files.
	Files []*ast.File    // Parsed source files, with comments.
	Pkg   *ssa.Package   // SSA IR of the package under analysis.
	Prog  *ssa.Program   // SSA IR for whole program.

	BldLog io.Writer // Build log.
}
