// Package pass drives the retain/release sequence dataflow over the
// functions of a Go program.
//
// Each function is lowered to ir, and the evaluator is run on its region
// tree until the output maps stop changing. Functions are independent and
// are analysed in parallel.
package pass

import (
	"context"

	"github.com/fatih/color"
	"github.com/nickng/arcseq/alias"
	"github.com/nickng/arcseq/arc"
	"github.com/nickng/arcseq/config"
	"github.com/nickng/arcseq/directive"
	"github.com/nickng/arcseq/ir"
	"github.com/nickng/arcseq/loop"
	"github.com/nickng/arcseq/lower"
	"github.com/nickng/arcseq/rcid"
	"github.com/nickng/arcseq/region"
	"github.com/nickng/arcseq/ssa"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	gossa "golang.org/x/tools/go/ssa"
)

// Pass is the analysis of a program.
type Pass struct {
	info *ssa.Info
	conf *config.Config
	dirs *directive.Set

	logger *arc.Logger
	module string
}

// New returns a Pass over the functions of info. The retain and release
// functions are those marked by directives in the source, and those named
// by conf.
func New(info *ssa.Info, conf *config.Config) *Pass {
	dirs := directive.Collect(info.Files)
	for _, name := range conf.Retain {
		dirs.MarkRetain(directive.ParseKey(name))
	}
	for _, name := range conf.Release {
		dirs.MarkRelease(directive.ParseKey(name))
	}
	p := &Pass{info: info, conf: conf, dirs: dirs}
	p.SetLogger(zap.NewNop().Sugar())
	return p
}

// SetLogger sets logger for Pass and the evaluators it creates.
func (p *Pass) SetLogger(l *zap.SugaredLogger) {
	p.logger = arc.NewLogger(l)
	p.module = color.CyanString("pass ")
}

// Directives returns the retain, release and consumed markers in use.
func (p *Pass) Directives() *directive.Set { return p.dirs }

// Lower lowers the Go function fn.
func (p *Pass) Lower(fn *gossa.Function) (*ir.Function, error) {
	f, err := lower.Function(fn, p.dirs)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot lower %s", fn)
	}
	return f, nil
}

// AnalyseFunction runs the dataflow on fn until the output maps are stable
// or the iteration bound is reached.
//
// Region states are not cleared between rounds, and the dataflow does not
// read the output maps, so a second round recomputes the same summaries and
// only confirms the first: a function with matches converges in two rounds.
// Tombstones are compacted out of the maps of the Result.
func (p *Pass) AnalyseFunction(fn *ir.Function) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			ae, ok := r.(arc.AssertionError)
			if !ok {
				panic(r)
			}
			res, err = nil, errors.Wrapf(ae, "analysis of %s failed", fn.Name)
		}
	}()

	forest := loop.Detect(fn)
	tree := region.Build(fn, forest)
	rc := rcid.New(fn)
	res = &Result{
		Func:     fn,
		DecToInc: arc.NewDecToIncMap(),
		IncToDec: arc.NewIncToDecMap(),
		Loops:    forest.Len(),
	}
	e := arc.NewEvaluator(fn, alias.New(fn, rc), tree, forest, rc, res.DecToInc, res.IncToDec)
	e.SetLogger(p.logger)
	for res.Iterations < p.conf.MaxIterations {
		res.Iterations++
		if !e.RunOnLoop(tree.Root(), p.conf.FreezeOwnedArgEpilogueReleases) {
			res.Converged = true
			break
		}
	}
	res.DecToInc.Compact()
	res.IncToDec.Compact()
	res.Matches = arc.Matches(res.DecToInc, res.IncToDec)
	p.logger.Infow(p.module+"analysed",
		"func", fn.Name,
		"loops", res.Loops,
		"iterations", res.Iterations,
		"converged", res.Converged,
		"matches", len(res.Matches))
	if !res.Converged {
		p.logger.Warnf("%s %s did not converge in %d iterations", p.module, fn.Name, res.Iterations)
	}
	return res, nil
}

// Run analyses every source function of the program, at most conf.Workers
// at a time. Results are in source order.
func (p *Pass) Run(ctx context.Context) ([]*Result, error) {
	fns := p.info.Functions()
	results := make([]*Result, len(fns))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.conf.Workers)
	for i, fn := range fns {
		i, fn := i, fn
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := p.Lower(fn)
			if err != nil {
				return err
			}
			res, err := p.AnalyseFunction(f)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
