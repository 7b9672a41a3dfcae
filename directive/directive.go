// Package directive handles arcseq comment directives.
//
// # Supported Directives
//
//	//arcseq:retain         - The function increments the count of its first argument
//	//arcseq:release        - The function decrements the count of its first argument
//	//arcseq:consumed a b   - Parameters a and b are passed to the function at +1
//
// Directives are placed in the doc comment of a function declaration:
//
//	//arcseq:consumed obj
//	func sink(obj *Object) {
//	    release(obj)
//	}
package directive

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"
)

const directivePrefix = "arcseq:"

// hasDirective checks if a comment contains the specified directive.
// Supports both "//arcseq:name" and "// arcseq:name".
func hasDirective(text, name string) bool {
	_, ok := directiveArgs(text, name)
	return ok
}

// directiveArgs returns the space separated arguments of the directive.
func directiveArgs(text, name string) ([]string, bool) {
	text = strings.TrimPrefix(text, "//")
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, directivePrefix+name) {
		return nil, false
	}
	rest := strings.TrimPrefix(text, directivePrefix+name)
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return nil, false // e.g. arcseq:retained
	}
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[:i] // Trailing comment.
	}
	return strings.Fields(rest), true
}

// IsRetainDirective checks if a comment is a retain directive.
func IsRetainDirective(text string) bool { return hasDirective(text, "retain") }

// IsReleaseDirective checks if a comment is a release directive.
func IsReleaseDirective(text string) bool { return hasDirective(text, "release") }

// ConsumedArgs returns the parameter names of a consumed directive.
func ConsumedArgs(text string) ([]string, bool) { return directiveArgs(text, "consumed") }

// FuncKey identifies a function or method declared in a package.
type FuncKey struct {
	ReceiverType string // Receiver type name without pointer, empty for functions.
	FuncName     string
}

func (k FuncKey) String() string {
	if k.ReceiverType != "" {
		return k.ReceiverType + "." + k.FuncName
	}
	return k.FuncName
}

// ParseKey parses a function name "f" or a method name "T.m" (or "*T.m").
func ParseKey(name string) FuncKey {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return FuncKey{ReceiverType: strings.TrimPrefix(name[:i], "*"), FuncName: name[i+1:]}
	}
	return FuncKey{FuncName: name}
}

// KeyOf returns the key of an SSA function.
func KeyOf(fn *ssa.Function) FuncKey {
	key := FuncKey{FuncName: fn.Name()}
	if recv := fn.Signature.Recv(); recv != nil {
		key.ReceiverType = receiverName(recv.Type())
	}
	return key
}

func receiverName(t types.Type) string {
	if ptr, ok := t.(*types.Pointer); ok {
		t = ptr.Elem()
	}
	if named, ok := t.(*types.Named); ok {
		return named.Obj().Name()
	}
	return t.String()
}

func declKey(decl *ast.FuncDecl) FuncKey {
	key := FuncKey{FuncName: decl.Name.Name}
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		t := decl.Recv.List[0].Type
		if star, ok := t.(*ast.StarExpr); ok {
			t = star.X
		}
		switch t := t.(type) {
		case *ast.Ident:
			key.ReceiverType = t.Name
		case *ast.IndexExpr: // Generic receiver.
			if id, ok := t.X.(*ast.Ident); ok {
				key.ReceiverType = id.Name
			}
		case *ast.IndexListExpr:
			if id, ok := t.X.(*ast.Ident); ok {
				key.ReceiverType = id.Name
			}
		}
	}
	return key
}

// Set is the set of directives found on the functions of a package.
type Set struct {
	retain   map[FuncKey]bool
	release  map[FuncKey]bool
	consumed map[FuncKey][]string
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{
		retain:   make(map[FuncKey]bool),
		release:  make(map[FuncKey]bool),
		consumed: make(map[FuncKey][]string),
	}
}

// Collect reads the directives in the doc comments of the function
// declarations of files.
func Collect(files []*ast.File) *Set {
	s := NewSet()
	for _, f := range files {
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Doc == nil {
				continue
			}
			key := declKey(fd)
			for _, c := range fd.Doc.List {
				switch {
				case IsRetainDirective(c.Text):
					s.retain[key] = true
				case IsReleaseDirective(c.Text):
					s.release[key] = true
				default:
					if args, ok := ConsumedArgs(c.Text); ok {
						s.consumed[key] = append(s.consumed[key], args...)
					}
				}
			}
		}
	}
	return s
}

// MarkRetain marks the function key as a retain operation.
func (s *Set) MarkRetain(key FuncKey) { s.retain[key] = true }

// MarkRelease marks the function key as a release operation.
func (s *Set) MarkRelease(key FuncKey) { s.release[key] = true }

// IsRetain returns true if fn is marked as a retain operation.
func (s *Set) IsRetain(fn *ssa.Function) bool { return fn != nil && s.retain[KeyOf(fn)] }

// IsRelease returns true if fn is marked as a release operation.
func (s *Set) IsRelease(fn *ssa.Function) bool { return fn != nil && s.release[KeyOf(fn)] }

// Consumed returns true if the parameter name of fn is consumed.
func (s *Set) Consumed(fn *ssa.Function, name string) bool {
	if fn == nil {
		return false
	}
	for _, p := range s.consumed[KeyOf(fn)] {
		if p == name {
			return true
		}
	}
	return false
}

// Len returns the number of functions with directives.
func (s *Set) Len() int {
	keys := make(map[FuncKey]bool)
	for k := range s.retain {
		keys[k] = true
	}
	for k := range s.release {
		keys[k] = true
	}
	for k := range s.consumed {
		keys[k] = true
	}
	return len(keys)
}
