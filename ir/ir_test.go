package ir

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuilder(t *testing.T) {
	f := NewFunction("f")
	a := f.AddParam("a", true)
	entry, then, els, done := f.NewBlock("entry"), f.NewBlock("if.then"), f.NewBlock("if.else"), f.NewBlock("if.done")
	f.If(entry, then, els)
	f.Jump(then, done)
	f.Jump(els, done)
	x := entry.Alloc()
	inc := entry.Retain(x)
	then.Use(x)
	dec := done.Release(x)
	done.Release(a)
	done.Return()

	if want, got := entry, f.Entry(); want != got {
		t.Errorf("entry block mismatch: want %v got %v", want, got)
	}
	if exits := f.Exits(); len(exits) != 1 || exits[0] != done {
		t.Errorf("expects exactly one exit %v, got %v", done, exits)
	}
	if !inc.IsIncrement() || inc.IsDecrement() {
		t.Errorf("retain should be an increment: %v", inc)
	}
	if !dec.IsDecrement() {
		t.Errorf("release should be a decrement: %v", dec)
	}
	if inc.Operand() != x {
		t.Errorf("retain operand should be %s, got %v", x.Name(), inc.Operand())
	}
	if x.Name() != "t0" {
		t.Errorf("first value should be named t0, got %s", x.Name())
	}
	if inc.Name() != "" {
		t.Errorf("retain defines no value, got name %q", inc.Name())
	}
	if want, got := 6, f.NumInstrs(); want != got {
		t.Errorf("expects %d instructions, got %d", want, got)
	}
	if p := f.Param("a"); p != a || !p.Consumed {
		t.Errorf("param a should be found and consumed: %v", p)
	}
	if want, got := "release t0 @b3:0", dec.Label(); want != got {
		t.Errorf("label mismatch\nwant: %s\ngot:  %s", want, got)
	}
}

func TestCallString(t *testing.T) {
	f := NewFunction("g")
	b := f.NewBlock("entry")
	p := f.AddParam("p", false)
	x := b.Alloc()
	c := b.Call("sink", []Value{x, p}, []bool{true, false})
	if want, got := "t1 = call sink t0^, p", c.String(); want != got {
		t.Errorf("call string mismatch\nwant: %s\ngot:  %s", want, got)
	}
	if !c.Consumed(0) || c.Consumed(1) || c.Consumed(2) {
		t.Errorf("consumed flags wrong for %v", c)
	}
}

func TestWriteTo(t *testing.T) {
	f := NewFunction("h")
	f.AddParam("a", true)
	b0, b1 := f.NewBlock(""), f.NewBlock("exit")
	f.Jump(b0, b1)
	b1.Release(f.Param("a"))
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("cannot write function: %v", err)
	}
	for _, want := range []string{"func h(a @owned)", "b1 (exit): ← b0", "\trelease a", "\t→ b1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, buf.String())
		}
	}
}
