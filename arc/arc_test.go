package arc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nickng/arcseq/alias"
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/loop"
	"github.com/nickng/arcseq/rcid"
	"github.com/nickng/arcseq/region"
)

type fixture struct {
	fn       *ir.Function
	forest   *loop.Forest
	tree     *region.Tree
	e        *Evaluator
	decToInc *DecToIncMap
	incToDec *IncToDecMap
}

func newFixture(fn *ir.Function) *fixture {
	forest := loop.Detect(fn)
	tree := region.Build(fn, forest)
	rc := rcid.New(fn)
	f := &fixture{
		fn:       fn,
		forest:   forest,
		tree:     tree,
		decToInc: NewDecToIncMap(),
		incToDec: NewIncToDecMap(),
	}
	f.e = NewEvaluator(fn, alias.New(fn, rc), tree, forest, rc, f.decToInc, f.incToDec)
	return f
}

func (f *fixture) run(freeze bool) bool {
	return f.e.RunOnLoop(f.tree.Root(), freeze)
}

func (f *fixture) dump(t *testing.T) string {
	var sb strings.Builder
	if err := WriteMaps(&sb, f.decToInc, f.incToDec); err != nil {
		t.Fatal(err)
	}
	return sb.String()
}

// pairs returns the matches as (increment, decrement) label pairs.
func (f *fixture) pairs() [][2]string {
	var out [][2]string
	for _, m := range Matches(f.decToInc, f.incToDec) {
		out = append(out, [2]string{m.Increment.Label(), m.Decrement.Label()})
	}
	return out
}

func pair(inc, dec *ir.Instr) [2]string { return [2]string{inc.Label(), dec.Label()} }

func labels(instrs ...*ir.Instr) []string {
	var out []string
	for _, instr := range instrs {
		out = append(out, instr.Label())
	}
	return out
}

// straightLine: retain x; use x; release x.
func straightLine() (*ir.Function, *ir.Instr, *ir.Instr) {
	fn := ir.NewFunction("straight")
	x := fn.AddParam("x", false)
	b := fn.NewBlock("entry")
	inc := b.Retain(x)
	b.Use(x)
	dec := b.Release(x)
	b.Return()
	return fn, inc, dec
}

func TestStraightLine(t *testing.T) {
	fn, inc, dec := straightLine()
	f := newFixture(fn)
	if !f.run(true) {
		t.Errorf("first run should change the maps")
	}
	bu, ok := f.incToDec.Get(inc)
	if !ok {
		t.Fatalf("expects %s in IncToDecState", inc.Label())
	}
	if diff := cmp.Diff(labels(dec), labels(bu.Decrements()...)); diff != "" {
		t.Errorf("bottom-up partner mismatch (-want +got):\n%s", diff)
	}
	td, ok := f.decToInc.Get(dec)
	if !ok {
		t.Fatalf("expects %s in DecToIncState", dec.Label())
	}
	if diff := cmp.Diff(labels(inc), labels(td.Increments()...)); diff != "" {
		t.Errorf("top-down partner mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][2]string{pair(inc, dec)}, f.pairs()); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
	if f.e.Function() != fn {
		t.Errorf("Function() should return the analysed function")
	}
}

// loopDecrement: retain x; loop { release x }.
func loopDecrement() (*ir.Function, *ir.Instr, *ir.Instr) {
	fn := ir.NewFunction("loopdec")
	x := fn.AddParam("x", false)
	b0, b1, b2, b3 := fn.NewBlock("entry"), fn.NewBlock("for.loop"), fn.NewBlock("for.body"), fn.NewBlock("for.done")
	inc := b0.Retain(x)
	fn.Jump(b0, b1)
	fn.If(b1, b2, b3)
	dec := b2.Release(x)
	fn.Jump(b2, b1)
	b3.Return()
	return fn, inc, dec
}

func TestLoopSummary(t *testing.T) {
	fn, inc, dec := loopDecrement()
	f := newFixture(fn)
	f.run(true)

	loops := f.tree.Loops()
	if len(loops) != 1 {
		t.Fatalf("expects 1 loop region, got %d", len(loops))
	}
	summary := f.e.RegionState(loops[0]).BottomUpSummary()
	if len(summary) != 1 || !summary[0].IsSearching() || summary[0].Decrements()[0] != dec {
		t.Fatalf("loop summary should report %s still matchable, got %v", dec.Label(), summary)
	}
	bu, ok := f.incToDec.Get(inc)
	if !ok || !bu.IsMatched() || bu.Decrements()[0] != dec {
		t.Errorf("parent region should confirm %s ↔ %s, got %v", inc.Label(), dec.Label(), bu)
	}
	// The increment cannot cross the loop top-down: the loop releases x.
	if _, ok := f.decToInc.Get(dec); ok {
		t.Errorf("top-down should not match across the loop")
	}
	if got := f.pairs(); len(got) != 0 {
		t.Errorf("maps should not agree on any pair, got %v", got)
	}
}

// branches: retain x; if { left } else { right }; release x.
func branches(left, right func(b *ir.Block, x, p *ir.Parameter)) (*ir.Function, *ir.Instr, *ir.Instr) {
	fn := ir.NewFunction("join")
	x := fn.AddParam("x", false)
	p := fn.AddParam("p", false)
	b0, b1, b2, b3 := fn.NewBlock("entry"), fn.NewBlock("if.then"), fn.NewBlock("if.else"), fn.NewBlock("if.done")
	inc := b0.Retain(x)
	fn.If(b0, b1, b2)
	left(b1, x, p)
	right(b2, x, p)
	fn.Jump(b1, b3)
	fn.Jump(b2, b3)
	dec := b3.Release(x)
	b3.Return()
	return fn, inc, dec
}

func TestJoin(t *testing.T) {
	clean := func(b *ir.Block, x, _ *ir.Parameter) { b.Use(x) }
	tests := []struct {
		name        string
		left, right func(b *ir.Block, x, p *ir.Parameter)
		match       bool
	}{
		{"both clean", clean, clean, true},
		{"store through x", func(b *ir.Block, x, p *ir.Parameter) { b.Store(x, p) }, clean, false},
		{"store x", clean, func(b *ir.Block, x, p *ir.Parameter) { b.Store(p, x) }, false},
		{"release of alias", func(b *ir.Block, _, p *ir.Parameter) { b.Release(p) }, clean, false},
		{"call", func(b *ir.Block, _, _ *ir.Parameter) { b.Call("f", nil, nil) }, clean, false},
		{"retain of alias", func(b *ir.Block, _, p *ir.Parameter) { b.Retain(p) }, clean, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fn, inc, dec := branches(tc.left, tc.right)
			f := newFixture(fn)
			f.run(true)
			_, hasTD := f.decToInc.Get(dec)
			_, hasBU := f.incToDec.Get(inc)
			if hasTD != tc.match || hasBU != tc.match {
				t.Errorf("match: want %t, got top-down %t bottom-up %t", tc.match, hasTD, hasBU)
			}
		})
	}
}

func TestLocalObjectCall(t *testing.T) {
	fn := ir.NewFunction("local")
	b := fn.NewBlock("entry")
	obj := b.Alloc()
	inc := b.Retain(obj)
	b.Call("f", nil, nil)
	dec := b.Release(obj)
	b.Return()
	f := newFixture(fn)
	f.run(true)
	if diff := cmp.Diff([][2]string{pair(inc, dec)}, f.pairs()); diff != "" {
		t.Errorf("call cannot release a non-escaping object (-want +got):\n%s", diff)
	}
}

func TestNested(t *testing.T) {
	fn := ir.NewFunction("nested")
	x := fn.AddParam("x", false)
	b := fn.NewBlock("entry")
	i1, i2 := b.Retain(x), b.Retain(x)
	d1, d2 := b.Release(x), b.Release(x)
	b.Return()
	f := newFixture(fn)
	f.run(true)
	want := [][2]string{pair(i1, d2), pair(i2, d1)}
	if diff := cmp.Diff(want, f.pairs()); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
	if bu, _ := f.incToDec.Get(i2); !bu.Covering {
		t.Errorf("inner pair should be covered by the outer pair: %v", bu)
	}
	if bu, _ := f.incToDec.Get(i1); bu.Covering {
		t.Errorf("outer pair should not be covered: %v", bu)
	}
	if td, _ := f.decToInc.Get(d1); !td.Covering {
		t.Errorf("inner pair should be covered top-down: %v", td)
	}
}

func TestAtMostOne(t *testing.T) {
	// retain x; if { release x; return } else { release x; return }
	fn := ir.NewFunction("twice")
	x := fn.AddParam("x", false)
	b0, b1, b2 := fn.NewBlock("entry"), fn.NewBlock("if.then"), fn.NewBlock("if.else")
	b0.Retain(x)
	fn.If(b0, b1, b2)
	b1.Release(x)
	b1.Return()
	b2.Release(x)
	b2.Return()
	f := newFixture(fn)
	f.run(true)
	if want, got := 0, f.incToDec.Len(); want != got {
		t.Errorf("increment claimed by two decrements should be dropped, got %d entries", got)
	}
	if want, got := 0, f.decToInc.Len(); want != got {
		t.Errorf("diverging decrements should not match, got %d entries", got)
	}
}

// epilogue builds a function consuming a with two return blocks releasing
// it. The entry retains a if retain is true.
func epilogue(retain bool) (*ir.Function, *ir.Instr, *ir.Instr, *ir.Instr) {
	fn := ir.NewFunction("epilogue")
	a := fn.AddParam("a", true)
	b0, b1, b2 := fn.NewBlock("entry"), fn.NewBlock("if.then"), fn.NewBlock("if.else")
	var inc *ir.Instr
	if retain {
		inc = b0.Retain(a)
	}
	b0.Use(a)
	fn.If(b0, b1, b2)
	r1 := b1.Release(a)
	b1.Return()
	r2 := b2.Release(a)
	b2.Return()
	return fn, inc, r1, r2
}

func TestConsumedArgEpilogue(t *testing.T) {
	fn, _, r1, r2 := epilogue(false)
	f := newFixture(fn)
	m := f.e.Epilogue()
	if want, got := 1, m.Len(); want != got {
		t.Fatalf("expects %d consumed argument, got %d", want, got)
	}
	a := fn.Param("a")
	if diff := cmp.Diff(labels(r1, r2), labels(m.Releases(a)...)); diff != "" {
		t.Errorf("epilogue releases mismatch (-want +got):\n%s", diff)
	}
	if !m.IsEpilogueRelease(r2) || m.ArgFor(r1) != a {
		t.Errorf("both releases should discharge a")
	}

	f.run(true)
	summary := f.e.RegionState(f.tree.Root()).BottomUpSummary()
	if len(summary) != 1 {
		t.Fatalf("expects one bottom-up state at entry, got %v", summary)
	}
	s := summary[0]
	if s.Arg != a || !s.IsSearching() {
		t.Errorf("state should be the searching epilogue group of a, got %v", s)
	}
	if diff := cmp.Diff(labels(r1, r2), labels(s.Decrements()...)); diff != "" {
		t.Errorf("both exits should seed the group (-want +got):\n%s", diff)
	}
}

func TestFreeze(t *testing.T) {
	t.Run("frozen", func(t *testing.T) {
		fn, _, _, _ := epilogue(true)
		f := newFixture(fn)
		f.run(true)
		if f.incToDec.Len() != 0 || f.decToInc.Len() != 0 {
			t.Errorf("frozen epilogue releases should not match:\n%s", f.dump(t))
		}
	})
	t.Run("not frozen", func(t *testing.T) {
		fn, inc, r1, r2 := epilogue(true)
		f := newFixture(fn)
		f.run(false)
		want := [][2]string{pair(inc, r1), pair(inc, r2)}
		if diff := cmp.Diff(want, f.pairs()); diff != "" {
			t.Errorf("matches mismatch (-want +got):\n%s", diff)
		}
		// Freezing again withdraws the matches.
		if !f.run(true) {
			t.Errorf("freezing should change the maps")
		}
		if got := f.pairs(); len(got) != 0 {
			t.Errorf("frozen run should blot the matches, got %v", got)
		}
	})
}

func TestEpilogueMap(t *testing.T) {
	tests := []struct {
		name  string
		exit  func(b *ir.Block, a *ir.Parameter)
		found bool
	}{
		{"release", func(b *ir.Block, a *ir.Parameter) { b.Release(a); b.Return() }, true},
		{"release of cast", func(b *ir.Block, a *ir.Parameter) { b.Release(b.Cast(a)); b.Return() }, true},
		{"twice", func(b *ir.Block, a *ir.Parameter) { b.Release(a); b.Release(a); b.Return() }, false},
		{"before call", func(b *ir.Block, a *ir.Parameter) { b.Release(a); b.Call("f", nil, nil); b.Return() }, false},
		{"before use", func(b *ir.Block, a *ir.Parameter) { b.Release(a); b.Use(a); b.Return() }, false},
		{"after use", func(b *ir.Block, a *ir.Parameter) { b.Use(a); b.Release(a); b.Return() }, true},
		{"missing", func(b *ir.Block, a *ir.Parameter) { b.Return() }, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fn := ir.NewFunction("f")
			a := fn.AddParam("a", true)
			b0, b1, b2 := fn.NewBlock("entry"), fn.NewBlock(""), fn.NewBlock("")
			fn.If(b0, b1, b2)
			b1.Release(a)
			b1.Return()
			tc.exit(b2, a)
			m := computePostDominatingConsumedArgMap(fn, rcid.New(fn))
			if got := m.Len() == 1; got != tc.found {
				t.Errorf("a in epilogue map: want %t got %t", tc.found, got)
			}
		})
	}
}

func TestIdempotent(t *testing.T) {
	fn := idempotentFunc()
	f := newFixture(fn)
	if !f.run(true) {
		t.Fatalf("first run should change the maps")
	}
	first := f.dump(t)
	if f.run(true) {
		t.Errorf("second run should not change the maps")
	}
	if diff := cmp.Diff(first, f.dump(t)); diff != "" {
		t.Errorf("maps changed (-first +second):\n%s", diff)
	}
}

func TestClearReset(t *testing.T) {
	f := newFixture(idempotentFunc())
	f.run(false)
	for _, r := range f.tree.Regions() {
		f.e.ClearLoopState(r)
		f.e.ClearLoopState(r) // Idempotent.
		if f.e.RegionState(r).Valid() {
			t.Errorf("%v should be invalid after clear", r)
		}
	}
	f.run(false)

	fresh := newFixture(idempotentFunc())
	fresh.run(false)
	if diff := cmp.Diff(fresh.dump(t), f.dump(t)); diff != "" {
		t.Errorf("cleared run differs from fresh run (-fresh +cleared):\n%s", diff)
	}
}

// idempotentFunc has matches at the function level and inside nested loops.
func idempotentFunc() *ir.Function {
	fn := ir.NewFunction("work")
	x := fn.AddParam("x", false)
	y := fn.AddParam("y", true)
	b := make([]*ir.Block, 6)
	for i := range b {
		b[i] = fn.NewBlock("")
	}
	b[0].Retain(x)
	fn.Jump(b[0], b[1])
	fn.If(b[1], b[2], b[5]) // Outer loop.
	b[2].Retain(y)
	b[2].Use(y)
	b[2].Release(y)
	fn.Jump(b[2], b[3])
	b[3].Retain(y) // Inner loop.
	b[3].Release(y)
	fn.If(b[3], b[3], b[4])
	b[4].Retain(x)
	fn.Jump(b[4], b[1])
	b[5].Release(x)
	b[5].Release(y)
	b[5].Return()
	return fn
}

func TestInvalidator(t *testing.T) {
	fn, _, _ := straightLine()
	f := newFixture(fn)
	f.e.SetInvalidator(InvalidatorFunc(func(instr *ir.Instr, _ ir.Value) bool {
		return instr.Op == ir.OpUse
	}))
	f.run(true)
	if got := f.pairs(); len(got) != 0 {
		t.Errorf("use should invalidate with the custom rule, got %v", got)
	}
}

func TestClearBlotsStaleMatches(t *testing.T) {
	blocking := InvalidatorFunc(func(instr *ir.Instr, _ ir.Value) bool { return true })

	fn, inc, dec := straightLine()
	f := newFixture(fn)
	f.run(true)
	if want, got := [][2]string{pair(inc, dec)}, f.pairs(); !cmp.Equal(want, got) {
		t.Fatalf("expects %v before clear, got %v", want, got)
	}
	f.e.SetInvalidator(blocking)
	for _, r := range f.tree.Regions() {
		f.e.ClearLoopState(r)
	}
	if !f.run(true) {
		t.Errorf("rerun after clear should report the blotted matches as a change")
	}
	if f.incToDec.Has(inc) || f.decToInc.Has(dec) {
		t.Errorf("stale entries of %s and %s should be blotted", inc.Label(), dec.Label())
	}
	if got := f.pairs(); len(got) != 0 {
		t.Errorf("expects no matches after clear, got %v", got)
	}

	freshFn, _, _ := straightLine()
	fresh := newFixture(freshFn)
	fresh.e.SetInvalidator(blocking)
	fresh.run(true)
	if diff := cmp.Diff(fresh.dump(t), f.dump(t)); diff != "" {
		t.Errorf("cleared run differs from fresh run (-fresh +cleared):\n%s", diff)
	}
}

func TestAssertions(t *testing.T) {
	expectPanic := func(t *testing.T, f func()) {
		t.Helper()
		defer func() {
			r := recover()
			if _, ok := r.(AssertionError); !ok {
				t.Errorf("expects AssertionError panic, got %v", r)
			}
		}()
		f()
	}
	t.Run("block region", func(t *testing.T) {
		fn, _, _ := straightLine()
		f := newFixture(fn)
		expectPanic(t, func() { f.e.RunOnLoop(f.tree.Root().Children()[0], true) })
	})
	t.Run("foreign region", func(t *testing.T) {
		fn, _, _ := straightLine()
		f, g := newFixture(fn), newFixture(fn)
		expectPanic(t, func() { f.e.ClearLoopState(g.tree.Root()) })
	})
	t.Run("inconsistent loop info", func(t *testing.T) {
		fn, _, _ := loopDecrement()
		other, _, _ := loopDecrement()
		rc := rcid.New(fn)
		expectPanic(t, func() {
			NewEvaluator(fn, alias.New(fn, rc), region.Build(fn, loop.Detect(fn)), loop.Detect(other),
				rc, NewDecToIncMap(), NewIncToDecMap())
		})
	})
	t.Run("loop info of another tree", func(t *testing.T) {
		fn, _, _ := loopDecrement()
		rc := rcid.New(fn)
		expectPanic(t, func() {
			NewEvaluator(fn, alias.New(fn, rc), region.Build(fn, loop.Detect(fn)), loop.Detect(fn),
				rc, NewDecToIncMap(), NewIncToDecMap())
		})
	})
}
