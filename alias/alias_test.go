package alias

import (
	"testing"

	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/rcid"
)

func TestMayAlias(t *testing.T) {
	f := ir.NewFunction("f")
	p := f.AddParam("p", false)
	q := f.AddParam("q", false)
	b := f.NewBlock("entry")
	local := b.Alloc()
	other := b.Alloc()
	stored := b.Alloc()
	field := b.Project(local)
	b.Store(p, stored)
	loaded := b.Load(p)
	b.Use(local, other)
	b.Return()

	a := New(f, rcid.New(f))
	tests := []struct {
		name string
		x, y ir.Value
		want bool
	}{
		{"same value", p, p, true},
		{"two parameters", p, q, true},
		{"two allocations", local, other, false},
		{"local and parameter", local, p, false},
		{"local and load", local, loaded, false},
		{"escaped and load", stored, loaded, true},
		{"field and base", field, local, true},
		{"field and other allocation", field, other, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.MayAlias(tc.x, tc.y); got != tc.want {
				t.Errorf("MayAlias(%s, %s): want %t got %t", tc.x.Name(), tc.y.Name(), tc.want, got)
			}
			if got := a.MayAlias(tc.y, tc.x); got != tc.want {
				t.Errorf("MayAlias(%s, %s): want %t got %t", tc.y.Name(), tc.x.Name(), tc.want, got)
			}
		})
	}
}

func TestMayEscape(t *testing.T) {
	f := ir.NewFunction("f")
	b0, b1 := f.NewBlock("entry"), f.NewBlock("exit")
	f.Jump(b0, b1)
	kept := b0.Alloc()
	merged := b0.Alloc()
	passed := b0.Alloc()
	alt := b0.Alloc()
	phi := b1.Phi(merged, alt)
	b1.Call("sink", []ir.Value{b1.Project(passed)}, nil)
	b1.Return(phi)

	a := New(f, rcid.New(f))
	tests := []struct {
		name string
		v    ir.Value
		want bool
	}{
		{"unused allocation", kept, false},
		{"returned through phi", merged, true},
		{"other incoming value of phi", alt, true},
		{"field passed to call", passed, true},
	}
	for _, tc := range tests {
		if got := a.MayEscape(tc.v); got != tc.want {
			t.Errorf("%s: MayEscape: want %t got %t", tc.name, tc.want, got)
		}
	}
}
