package pass

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nickng/arcseq/config"
	"github.com/nickng/arcseq/ssa"
	"github.com/nickng/arcseq/ssa/build"
)

const src = `package main

type Obj struct{}

func retain(o *Obj)  {}
func release(o *Obj) {}
func use(o *Obj)     {}

func simple(o *Obj) {
	retain(o)
	release(o)
}

func blocked(o *Obj) {
	retain(o)
	use(o)
	release(o)
}

func loop(o *Obj, n int) {
	for i := 0; i < n; i++ {
		retain(o)
		release(o)
	}
}

func main() {}
`

func buildInfo(t *testing.T) *ssa.Info {
	t.Helper()
	info, err := build.FromReader(strings.NewReader(src)).Default().Build()
	if err != nil {
		t.Fatalf("SSA build failed: %v", err)
	}
	return info
}

func analyse(t *testing.T, p *Pass, name string) *Result {
	t.Helper()
	fn, err := p.info.FindFunc(name)
	if err != nil {
		t.Fatal(err)
	}
	f, err := p.Lower(fn)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.AnalyseFunction(f)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func matchStrings(r *Result) []string {
	var s []string
	for _, m := range r.Matches {
		s = append(s, m.String())
	}
	return s
}

func TestAnalyseFunction(t *testing.T) {
	tests := []struct {
		fn         string
		matches    int
		iterations int
	}{
		{"simple", 1, 2},
		{"blocked", 0, 1},
		{"loop", 1, 2},
	}
	p := New(buildInfo(t), config.Default())
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			res := analyse(t, p, tt.fn)
			if want, got := tt.matches, len(res.Matches); want != got {
				t.Errorf("expects %d matches, got %d: %v", want, got, matchStrings(res))
			}
			if want, got := tt.iterations, res.Iterations; want != got {
				t.Errorf("expects %d iterations, got %d", want, got)
			}
			if !res.Converged {
				t.Errorf("%s should converge", tt.fn)
			}
		})
	}
}

func TestSimpleMatch(t *testing.T) {
	p := New(buildInfo(t), config.Default())
	res := analyse(t, p, "simple")
	want := []string{"retain o @b0:0 ↔ release o @b0:1"}
	if diff := cmp.Diff(want, matchStrings(res)); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}
}

func TestIterationBound(t *testing.T) {
	conf := config.Default()
	conf.MaxIterations = 1
	p := New(buildInfo(t), conf)
	res := analyse(t, p, "simple")
	if res.Converged {
		t.Errorf("one iteration publishing a match cannot be known to converge")
	}
	var buf bytes.Buffer
	if _, err := res.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "not converged") {
		t.Errorf("report should say not converged, got:\n%s", buf.String())
	}
}

func TestSecondRoundConfirms(t *testing.T) {
	conf := config.Default()
	conf.MaxIterations = 10
	p := New(buildInfo(t), conf)
	for _, name := range []string{"simple", "loop"} {
		res := analyse(t, p, name)
		if want, got := 2, res.Iterations; want != got || !res.Converged {
			t.Errorf("%s: expects to converge in %d rounds, got %d (converged=%t)",
				name, want, got, res.Converged)
		}
	}
}

func TestRun(t *testing.T) {
	conf := config.Default()
	conf.Workers = 2
	p := New(buildInfo(t), conf)
	results, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	var names []string
	for _, r := range results {
		names = append(names, r.Func.Name)
	}
	want := []string{"retain", "release", "use", "simple", "blocked", "loop", "main"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(buildInfo(t), config.Default())
	if _, err := p.Run(ctx); err == nil {
		t.Errorf("expects error from a cancelled run")
	}
}

func TestConfigNames(t *testing.T) {
	conf := config.Default()
	conf.Retain = []string{"use"}
	conf.Release = nil
	p := New(buildInfo(t), conf)
	fn, err := p.info.FindFunc("blocked")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Directives().IsRetain(p.info.Pkg.Func("use")) {
		t.Errorf("use should be a retain function")
	}
	if p.Directives().IsRelease(p.info.Pkg.Func("release")) {
		t.Errorf("release should not be a release function")
	}
	f, err := p.Lower(fn)
	if err != nil {
		t.Fatal(err)
	}
	var incs int
	for _, instr := range f.Instrs() {
		if instr.IsIncrement() {
			incs++
		}
	}
	if want, got := 1, incs; want != got {
		t.Errorf("expects %d increment, got %d", want, got)
	}
}
