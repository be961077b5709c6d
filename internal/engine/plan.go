package engine

import (
	"fmt"
	"strings"

	"github.com/hupe1980/evigo/internal/formula"
	"github.com/hupe1980/evigo/internal/planner"
	"github.com/hupe1980/evigo/query"
)

// Alternative is one index alternative compiled into a formula.
type Alternative struct {
	Target        *planner.TargetIndexes
	Formula       formula.Formula
	EstimatedCost int64
}

// String returns the target description with the estimated cost.
func (a Alternative) String() string {
	return a.Target.StringWithCost(a.EstimatedCost)
}

// Plan is the outcome of index selection and compilation of one query.
type Plan struct {
	Query     *query.Query
	Selection *planner.IndexSelectionResult
	// Alternatives holds the baseline followed by the eligible reduced
	// alternatives, in registration order. It is empty when the selection
	// proved the result empty.
	Alternatives []Alternative

	chosen int
}

// IsEmpty reports whether the selection proved the result empty.
func (p *Plan) IsEmpty() bool { return p.chosen < 0 }

// Chosen returns the cheapest alternative, or nil for an empty plan.
func (p *Plan) Chosen() *Alternative {
	if p.chosen < 0 {
		return nil
	}
	return &p.Alternatives[p.chosen]
}

// Formula returns the formula of the chosen alternative.
func (p *Plan) Formula() formula.Formula {
	if a := p.Chosen(); a != nil {
		return a.Formula
	}
	return formula.Empty
}

// EstimatedCost returns the estimated cost of the chosen alternative.
func (p *Plan) EstimatedCost() int64 {
	if a := p.Chosen(); a != nil {
		return a.EstimatedCost
	}
	return 0
}

// Explain renders the compared alternatives and the chosen formula tree.
func (p *Plan) Explain(opts ...formula.PrintOption) string {
	var sb strings.Builder
	sb.WriteString(p.Query.String())
	sb.WriteString("\n")

	if p.IsEmpty() {
		sb.WriteString("result proven empty by index selection\n")
		return sb.String()
	}

	sb.WriteString("alternatives:\n")
	for i, a := range p.Alternatives {
		marker := " "
		if i == p.chosen {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s %s\n", marker, a)
	}
	if p.Selection != nil && p.Selection.QueriedByOtherConstraints() {
		sb.WriteString("  (filter also queries constraints that do not select indexes)\n")
	}
	sb.WriteString("formula:\n")
	sb.WriteString(formula.Print(p.Formula(), opts...))
	return sb.String()
}

// choose picks the alternative with the lowest estimated cost. Ties keep
// registration order.
func choose(alternatives []Alternative) int {
	best := -1
	for i, a := range alternatives {
		if best < 0 || a.EstimatedCost < alternatives[best].EstimatedCost {
			best = i
		}
	}
	return best
}
