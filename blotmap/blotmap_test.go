package blotmap

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetBlot(t *testing.T) {
	m := New[string, int]()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Set("c", 3)
	m.Set("b", 20)
	if !m.Blot("a") {
		t.Errorf("blotting a live key should return true")
	}
	if m.Blot("a") {
		t.Errorf("blotting a blotted key should return false")
	}
	if m.Blot("z") {
		t.Errorf("blotting an absent key should return false")
	}
	if _, ok := m.Get("a"); ok {
		t.Errorf("a should be blotted")
	}
	if want, got := 2, m.Len(); want != got {
		t.Errorf("expects %d live entries, got %d", want, got)
	}
	if diff := cmp.Diff([]string{"b", "c"}, m.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	// Reinserting a blotted key keeps its position.
	m.Set("a", 10)
	if diff := cmp.Diff([]string{"a", "b", "c"}, m.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	if v, _ := m.Get("b"); v != 20 {
		t.Errorf("b: want 20 got %d", v)
	}
}

func TestCompact(t *testing.T) {
	m := New[int, string]()
	for i, s := range []string{"w", "x", "y", "z"} {
		m.Set(i, s)
	}
	m.Blot(0)
	m.Blot(2)
	m.Compact()
	if want, got := 2, m.Len(); want != got {
		t.Errorf("expects %d live entries, got %d", want, got)
	}
	got := make(map[int]string)
	m.Range(func(k int, v string) bool {
		got[k] = v
		return true
	})
	if diff := cmp.Diff(map[int]string{1: "x", 3: "z"}, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	// A compacted key goes to the end.
	m.Set(0, "w")
	if diff := cmp.Diff([]int{1, 3, 0}, m.Keys()); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
	m.Clear()
	if m.Len() != 0 || len(m.Keys()) != 0 {
		t.Errorf("cleared map should be empty")
	}
}

func TestRangeStop(t *testing.T) {
	m := New[int, int]()
	for i := 0; i < 5; i++ {
		m.Set(i, i*i)
	}
	var n int
	m.Range(func(k, v int) bool {
		n++
		return k < 2
	})
	if want, got := 3, n; want != got {
		t.Errorf("Range should stop after %d calls, got %d", want, got)
	}
}
