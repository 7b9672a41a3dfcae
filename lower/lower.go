// Package lower translates go/ssa functions into ir functions.
//
// Only the parts of a Go function relevant to reference counting are kept:
// calls to retain and release functions become increments and decrements,
// allocations, memory accesses, conversions and calls keep their operands,
// and values which cannot be objects (constants, functions) are dropped.
package lower

import (
	"fmt"
	"go/token"
	"path/filepath"

	"github.com/nickng/arcseq/directive"
	"github.com/nickng/arcseq/ir"
	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"
)

// UndefinedValueError is the error returned if an operand is used before it
// is defined in dominator order.
type UndefinedValueError struct {
	Fn    *ssa.Function
	Value ssa.Value
}

func (e UndefinedValueError) Error() string {
	return fmt.Sprintf("%s: value %s used before definition", e.Fn, e.Value.Name())
}

// lowerer holds the translation state of one function.
type lowerer struct {
	src  *ssa.Function
	dirs *directive.Set
	fn   *ir.Function

	blocks  map[*ssa.BasicBlock]*ir.Block
	vals    map[ssa.Value]ir.Value // nil for dropped values.
	globals map[ssa.Value]*ir.Global
	phis    map[*ssa.Phi]*ir.Instr
}

// Function lowers fn. Retain, release and consumed parameters are read from
// dirs.
func Function(fn *ssa.Function, dirs *directive.Set) (*ir.Function, error) {
	if len(fn.Blocks) == 0 {
		return nil, errors.Errorf("%s has no body", fn)
	}
	l := &lowerer{
		src:     fn,
		dirs:    dirs,
		fn:      ir.NewFunction(Name(fn)),
		blocks:  make(map[*ssa.BasicBlock]*ir.Block),
		vals:    make(map[ssa.Value]ir.Value),
		globals: make(map[ssa.Value]*ir.Global),
		phis:    make(map[*ssa.Phi]*ir.Instr),
	}
	for _, p := range fn.Params {
		l.vals[p] = l.fn.AddParam(p.Name(), dirs.Consumed(fn, p.Name()))
	}
	for _, b := range fn.Blocks {
		l.blocks[b] = l.fn.NewBlock(b.Comment)
	}
	// Edges are copied in order so that phi edges line up with Preds.
	for _, b := range fn.Blocks {
		for _, s := range b.Succs {
			l.blocks[b].Succs = append(l.blocks[b].Succs, l.blocks[s])
		}
		for _, p := range b.Preds {
			l.blocks[b].Preds = append(l.blocks[b].Preds, l.blocks[p])
		}
	}
	visited := make(map[*ssa.BasicBlock]bool)
	for _, b := range fn.DomPreorder() {
		if err := l.block(b); err != nil {
			return nil, err
		}
		visited[b] = true
	}
	for _, b := range fn.Blocks {
		if !visited[b] {
			if err := l.block(b); err != nil {
				return nil, err
			}
		}
	}
	for phi, instr := range l.phis {
		args, err := l.operands(phi.Edges...)
		if err != nil {
			return nil, err
		}
		instr.Args = args
	}
	return l.fn, nil
}

// Name returns the name of fn relative to its package.
func Name(fn *ssa.Function) string {
	if fn.Pkg != nil {
		return fn.RelString(fn.Pkg.Pkg)
	}
	return fn.String()
}

// operand returns the lowered v, or nil if v is dropped.
func (l *lowerer) operand(v ssa.Value) (ir.Value, error) {
	switch v := v.(type) {
	case nil, *ssa.Const, *ssa.Function, *ssa.Builtin:
		return nil, nil
	case *ssa.Global, *ssa.FreeVar:
		g, ok := l.globals[v]
		if !ok {
			g = ir.NewGlobal(v.Name())
			l.globals[v] = g
		}
		return g, nil
	}
	if x, ok := l.vals[v]; ok {
		return x, nil
	}
	if phi, ok := v.(*ssa.Phi); ok {
		if instr, ok := l.phis[phi]; ok {
			return instr, nil
		}
	}
	return nil, UndefinedValueError{Fn: l.src, Value: v}
}

// operands lowers vs, skipping dropped values.
func (l *lowerer) operands(vs ...ssa.Value) ([]ir.Value, error) {
	var xs []ir.Value
	for _, v := range vs {
		x, err := l.operand(v)
		if err != nil {
			return nil, err
		}
		if x != nil {
			xs = append(xs, x)
		}
	}
	return xs, nil
}

// allOperands lowers every operand of instr.
func (l *lowerer) allOperands(instr ssa.Instruction) ([]ir.Value, error) {
	var vs []ssa.Value
	for _, op := range instr.Operands(nil) {
		if *op != nil {
			vs = append(vs, *op)
		}
	}
	return l.operands(vs...)
}

func (l *lowerer) block(b *ssa.BasicBlock) error {
	blk := l.blocks[b]
	for _, instr := range b.Instrs {
		n := len(blk.Instrs)
		if err := l.instr(blk, instr); err != nil {
			return errors.WithMessagef(err, "%s", l.src.Prog.Fset.Position(instr.Pos()))
		}
		if pos := instr.Pos(); pos.IsValid() {
			for _, i := range blk.Instrs[n:] {
				i.Comment = l.position(pos)
			}
		}
	}
	return nil
}

func (l *lowerer) position(pos token.Pos) string {
	p := l.src.Prog.Fset.Position(pos)
	return fmt.Sprintf("%s:%d", filepath.Base(p.Filename), p.Line)
}

// unary defines v as op applied to x, or drops v with x.
func (l *lowerer) unary(blk *ir.Block, v, x ssa.Value, op ir.Op) error {
	arg, err := l.operand(x)
	if err != nil {
		return err
	}
	if arg == nil {
		l.vals[v] = nil
		return nil
	}
	l.vals[v] = blk.Emit(op, arg)
	return nil
}

// derived defines v as an unknown value computed from the operands of instr.
func (l *lowerer) derived(blk *ir.Block, v ssa.Value, instr ssa.Instruction) error {
	args, err := l.allOperands(instr)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		l.vals[v] = nil
		return nil
	}
	l.vals[v] = blk.Emit(ir.OpLoad, args...)
	return nil
}

func (l *lowerer) instr(blk *ir.Block, instr ssa.Instruction) error {
	switch instr := instr.(type) {
	case *ssa.If, *ssa.Jump, *ssa.DebugRef:
		return nil

	case *ssa.Phi:
		l.phis[instr] = blk.Phi()
		l.vals[instr] = l.phis[instr]
		return nil

	case *ssa.Alloc, *ssa.MakeMap, *ssa.MakeSlice, *ssa.MakeChan:
		l.vals[instr.(ssa.Value)] = blk.Alloc()
		return nil

	case *ssa.MakeClosure:
		c := blk.Alloc()
		l.vals[instr] = c
		bindings, err := l.operands(instr.Bindings...)
		if err != nil {
			return err
		}
		for _, b := range bindings {
			blk.Store(c, b)
		}
		return nil

	case *ssa.Call:
		return l.call(blk, instr, instr.Common(), "")
	case *ssa.Go:
		return l.call(blk, instr, instr.Common(), "go ")
	case *ssa.Defer:
		return l.call(blk, instr, instr.Common(), "defer ")

	case *ssa.Store:
		addr, err := l.operand(instr.Addr)
		if err != nil {
			return err
		}
		val, err := l.operand(instr.Val)
		if err != nil {
			return err
		}
		switch {
		case addr != nil && val != nil:
			blk.Store(addr, val)
		case addr != nil:
			blk.Use(addr)
		case val != nil: // Store to a constant address.
			blk.Call("store", []ir.Value{val}, nil)
		}
		return nil

	case *ssa.MapUpdate:
		m, err := l.operand(instr.Map)
		if err != nil {
			return err
		}
		elems, err := l.operands(instr.Key, instr.Value)
		if err != nil {
			return err
		}
		if m == nil {
			return nil
		}
		if len(elems) == 0 {
			blk.Use(m)
		}
		for _, e := range elems {
			blk.Store(m, e)
		}
		return nil

	case *ssa.UnOp:
		if instr.Op == token.MUL || instr.Op == token.ARROW {
			return l.unary(blk, instr, instr.X, ir.OpLoad)
		}
		return l.derived(blk, instr, instr)

	case *ssa.FieldAddr:
		return l.unary(blk, instr, instr.X, ir.OpProject)
	case *ssa.Field:
		return l.unary(blk, instr, instr.X, ir.OpProject)
	case *ssa.IndexAddr:
		return l.unary(blk, instr, instr.X, ir.OpProject)
	case *ssa.Index:
		return l.unary(blk, instr, instr.X, ir.OpProject)
	case *ssa.Slice:
		return l.unary(blk, instr, instr.X, ir.OpProject)
	case *ssa.Extract:
		return l.unary(blk, instr, instr.Tuple, ir.OpProject)

	case *ssa.Convert:
		return l.unary(blk, instr, instr.X, ir.OpCast)
	case *ssa.ChangeType:
		return l.unary(blk, instr, instr.X, ir.OpCast)
	case *ssa.ChangeInterface:
		return l.unary(blk, instr, instr.X, ir.OpCast)
	case *ssa.MakeInterface:
		return l.unary(blk, instr, instr.X, ir.OpCast)
	case *ssa.SliceToArrayPointer:
		return l.unary(blk, instr, instr.X, ir.OpCast)
	case *ssa.MultiConvert:
		return l.unary(blk, instr, instr.X, ir.OpCast)

	case *ssa.Return:
		results, err := l.operands(instr.Results...)
		if err != nil {
			return err
		}
		blk.Return(results...)
		return nil

	case *ssa.RunDefers:
		blk.Call("rundefers", nil, nil)
		return nil

	case *ssa.Panic:
		args, err := l.operands(instr.X)
		if err != nil {
			return err
		}
		blk.Call("panic", args, nil)
		return nil

	case *ssa.Send:
		args, err := l.operands(instr.Chan, instr.X)
		if err != nil {
			return err
		}
		blk.Call("send", args, nil)
		return nil

	case *ssa.Select:
		args, err := l.allOperands(instr)
		if err != nil {
			return err
		}
		l.vals[instr] = blk.Call("select", args, nil)
		return nil
	}

	// Lookup, TypeAssert, BinOp, Next, Range and anything newer.
	if v, ok := instr.(ssa.Value); ok {
		return l.derived(blk, v, instr)
	}
	args, err := l.allOperands(instr)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		blk.Use(args...)
	}
	return nil
}

// call lowers a function call. prefix marks go and defer calls, which have
// no result.
func (l *lowerer) call(blk *ir.Block, instr ssa.Instruction, common *ssa.CallCommon, prefix string) error {
	callee := common.StaticCallee()
	v, _ := instr.(ssa.Value)

	if prefix == "" && callee != nil && (l.dirs.IsRetain(callee) || l.dirs.IsRelease(callee)) && len(common.Args) > 0 {
		obj, err := l.operand(common.Args[0])
		if err != nil {
			return err
		}
		if obj != nil {
			if l.dirs.IsRetain(callee) {
				blk.Retain(obj)
			} else {
				blk.Release(obj)
			}
		}
		// A retain returning its argument is the same object.
		if v != nil {
			l.vals[v] = obj
		}
		return nil
	}

	if b, ok := common.Value.(*ssa.Builtin); ok && prefix == "" {
		args, err := l.operands(common.Args...)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			blk.Use(args...)
		}
		l.vals[v] = nil
		if b.Name() == "append" && len(args) > 0 {
			l.vals[v] = blk.Cast(args[0])
		}
		return nil
	}

	var (
		name     string
		args     []ir.Value
		consumes []bool
		consumed bool
	)
	switch {
	case common.IsInvoke():
		name = "invoke " + common.Method.Name()
	case callee != nil:
		name = Name(callee)
	default:
		name = "dynamic"
	}
	if common.IsInvoke() || callee == nil {
		recv, err := l.operand(common.Value)
		if err != nil {
			return err
		}
		if recv != nil {
			args = append(args, recv)
			consumes = append(consumes, false)
		}
	}
	for i, a := range common.Args {
		x, err := l.operand(a)
		if err != nil {
			return err
		}
		if x == nil {
			continue
		}
		c := callee != nil && i < len(callee.Params) && l.dirs.Consumed(callee, callee.Params[i].Name())
		args = append(args, x)
		consumes = append(consumes, c)
		consumed = consumed || c
	}
	if !consumed {
		consumes = nil
	}
	call := blk.Call(prefix+name, args, consumes)
	if v != nil {
		l.vals[v] = call
	}
	return nil
}
