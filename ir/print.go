package ir

import (
	"bytes"
	"fmt"
	"io"
)

// WriteTo writes f in human readable form to w.
func (f *Function) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("func %s(", f.Name))
	for i, p := range f.Params {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(p.name)
		if p.Consumed {
			buf.WriteString(" @owned")
		}
	}
	buf.WriteString(")\n")
	for _, b := range f.Blocks {
		buf.WriteString(fmt.Sprintf("%s:", b))
		if len(b.Preds) > 0 {
			buf.WriteString(" ← ")
			for i, p := range b.Preds {
				if i > 0 {
					buf.WriteString(", ")
				}
				buf.WriteString(fmt.Sprintf("b%d", p.Index))
			}
		}
		buf.WriteString("\n")
		for _, i := range b.Instrs {
			if i.Comment != "" {
				buf.WriteString(fmt.Sprintf("\t%-24s ; %s\n", i, i.Comment))
				continue
			}
			buf.WriteString(fmt.Sprintf("\t%s\n", i))
		}
		if len(b.Succs) > 0 {
			buf.WriteString("\t→")
			for _, s := range b.Succs {
				buf.WriteString(fmt.Sprintf(" b%d", s.Index))
			}
			buf.WriteString("\n")
		}
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}
