// Package build parses, type checks and builds SSA IR of a single package.
//
// # Sources
//
// FromFiles takes a list of source files, usually command line arguments,
// which must all belong to the same package. FromReader reads one file from
// an io.Reader, which is mostly used by tests.
//
// Files are parsed with their comments, so that directives can be read from
// the ast files kept in the result. Imported packages are type checked but
// their function bodies are not built.
package build
