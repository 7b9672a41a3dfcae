package pass

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/nickng/arcseq/arc"
	"github.com/nickng/arcseq/ir"
)

// Result is the outcome of the analysis of one function.
type Result struct {
	Func       *ir.Function
	DecToInc   *arc.DecToIncMap
	IncToDec   *arc.IncToDecMap
	Matches    []arc.Match
	Loops      int
	Iterations int  // RunOnLoop rounds on the function region.
	Converged  bool // The last round changed nothing.
}

// WriteTo writes the matches of r to w.
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s %s: ", color.New(color.Bold).Sprint("func"), r.Func.Name))
	switch len(r.Matches) {
	case 1:
		buf.WriteString("1 match")
	default:
		buf.WriteString(fmt.Sprintf("%d matches", len(r.Matches)))
	}
	buf.WriteString(fmt.Sprintf(" (%d iterations", r.Iterations))
	if !r.Converged {
		buf.WriteString(", " + color.YellowString("not converged"))
	}
	buf.WriteString(")\n")
	for _, m := range r.Matches {
		buf.WriteString(fmt.Sprintf("  %s %s %s", m.Increment.Label(), color.GreenString("↔"), m.Decrement.Label()))
		if m.Increment.Comment != "" {
			buf.WriteString(fmt.Sprintf("\t(%s, %s)", m.Increment.Comment, m.Decrement.Comment))
		}
		buf.WriteString("\n")
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// WriteMaps writes the raw output maps of r to w.
func (r *Result) WriteMaps(w io.Writer) error {
	return arc.WriteMaps(w, r.DecToInc, r.IncToDec)
}
