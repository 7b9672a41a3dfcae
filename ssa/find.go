package ssa

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// UnknownFuncError is the error returned if a function cannot be found.
type UnknownFuncError struct {
	Path string
}

func (e UnknownFuncError) Error() string {
	return fmt.Sprintf("function not found: %s", e.Path)
}

// Functions returns the functions and methods with bodies declared in the
// source files, in source order. Anonymous functions follow their parent.
func (info *Info) Functions() []*ssa.Function {
	var funcs []*ssa.Function
	var add func(fn *ssa.Function)
	add = func(fn *ssa.Function) {
		if fn == nil || fn.Blocks == nil || fn.Synthetic != "" {
			return
		}
		funcs = append(funcs, fn)
		for _, anon := range fn.AnonFuncs {
			add(anon)
		}
	}
	var members members
	for _, m := range info.Pkg.Members {
		switch m := m.(type) {
		case *ssa.Function:
			members = append(members, m)
		case *ssa.Type:
			mset := info.Prog.MethodSets.MethodSet(m.Type())
			for i := 0; i < mset.Len(); i++ {
				if fn := info.Prog.MethodValue(mset.At(i)); fn != nil && fn.Pkg == info.Pkg {
					members = append(members, fn)
				}
			}
			ptr := info.Prog.MethodSets.MethodSet(ptrTo(m))
			for i := 0; i < ptr.Len(); i++ {
				if fn := info.Prog.MethodValue(ptr.At(i)); fn != nil && fn.Pkg == info.Pkg {
					members = append(members, fn)
				}
			}
		}
	}
	sort.Stable(members)
	seen := make(map[*ssa.Function]bool)
	for _, m := range members {
		fn := m.(*ssa.Function)
		if !seen[fn] {
			seen[fn] = true
			add(fn)
		}
	}
	return funcs
}

// FindFunc parses path (e.g. "main".foo, (main).foo, main.foo or foo) and
// returns the Function body in SSA IR.
func (info *Info) FindFunc(path string) (*ssa.Function, error) {
	pkgPath, fnName := parseFuncPath(path)
	for _, fn := range info.Functions() {
		if pkgPath != "" && fn.Pkg.Pkg.Path() != pkgPath && fn.Pkg.Pkg.Name() != pkgPath {
			continue
		}
		if fn.Name() == fnName || fn.RelString(fn.Pkg.Pkg) == fnName {
			return fn, nil
		}
	}
	return nil, UnknownFuncError{Path: path}
}

// parseFuncPath splits path to package and function segments.
// Does not handle complex functions with receivers.
func parseFuncPath(path string) (pkgPath, fnName string) {
	if len(path) < 1 {
		return "", ""
	}
	switch path[0] {
	case '(':
		regex := regexp.MustCompile(`\((?P<pkg>[^)]+)\).(?P<fn>.+)`)
		submatches := regex.FindStringSubmatch(path)
		if len(submatches) >= 3 {
			return submatches[1], submatches[2]
		}
	case '"':
		regex := regexp.MustCompile(`"(?P<pkg>[^"]+)".(?P<fn>.+)`)
		submatches := regex.FindStringSubmatch(path)
		if len(submatches) >= 3 {
			return submatches[1], submatches[2]
		}
	default:
		if i := strings.LastIndex(path, "."); i > 0 {
			return path[:i], path[i+1:]
		}
	}
	return "", path
}
