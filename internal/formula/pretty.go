package formula

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/evigo/internal/bitmap"
)

const (
	unknownValue = "?"
	indentWidth  = 3
	valueLimit   = 20
)

type printOptions struct {
	ctx     context.Context
	verbose bool
}

// PrintOption configures Print.
type PrintOption func(*printOptions)

// Verbose renders the computed value of every node. Values are computed
// under ctx; failures are rendered as "?".
func Verbose(ctx context.Context) PrintOption {
	return func(o *printOptions) {
		o.ctx = ctx
		o.verbose = true
	}
}

// PrettyPrintingVisitor renders a formula tree as indented text. Shared
// nodes are expanded once and referenced afterwards.
type PrettyPrintingVisitor struct {
	opts   printOptions
	sb     strings.Builder
	depth  int
	labels map[uint64]int
}

// NewPrettyPrintingVisitor creates a printer. The visitor is single use.
func NewPrettyPrintingVisitor(opts ...PrintOption) *PrettyPrintingVisitor {
	o := printOptions{ctx: context.Background()}
	for _, fn := range opts {
		fn(&o)
	}
	return &PrettyPrintingVisitor{opts: o, labels: make(map[uint64]int)}
}

// Print renders root.
func Print(root Formula, opts ...PrintOption) string {
	if root == nil {
		return ""
	}
	p := NewPrettyPrintingVisitor(opts...)
	root.Accept(p)
	return p.String()
}

// String returns the rendered text.
func (p *PrettyPrintingVisitor) String() string { return p.sb.String() }

// Visit implements Visitor.
func (p *PrettyPrintingVisitor) Visit(f Formula) {
	p.sb.WriteString(strings.Repeat(" ", p.depth*indentWidth))
	if label, ok := p.labels[f.ID()]; ok {
		fmt.Fprintf(&p.sb, "[Ref to #%d]\n", label)
		return
	}
	label := len(p.labels)
	p.labels[f.ID()] = label

	fmt.Fprintf(&p.sb, "[#%d] %s", label, f.String())
	if p.opts.verbose {
		fmt.Fprintf(&p.sb, " => %s", p.value(f))
	}
	p.sb.WriteByte('\n')

	p.depth++
	for _, in := range f.InnerFormulas() {
		in.Accept(p)
	}
	p.depth--
}

func (p *PrettyPrintingVisitor) value(f Formula) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = unknownValue
		}
	}()
	r, err := f.Compute(p.opts.ctx)
	if err != nil || r == nil {
		return unknownValue
	}
	return bitmap.Format(r, valueLimit)
}
