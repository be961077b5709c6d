package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrAttributeNotFilterable is returned when a filter names an attribute
	// that is not declared or not filterable.
	ErrAttributeNotFilterable = errors.New("attribute is not filterable")

	// ErrInvalidPriceFilter is returned for price constraints that cannot
	// be evaluated.
	ErrInvalidPriceFilter = errors.New("invalid price filter")

	// ErrBudgetExceeded is returned when a query exhausts its QueryBudget.
	ErrBudgetExceeded = errors.New("query budget exceeded")

	// ErrBackpressure is returned when no query slot can be acquired.
	ErrBackpressure = errors.New("backpressure: resource limit exceeded")
)

// AttributeNotFilterableError names the offending attribute.
type AttributeNotFilterableError struct {
	EntityType string
	Attribute  string
}

func (e *AttributeNotFilterableError) Error() string {
	return fmt.Sprintf("%s: %q in %q", ErrAttributeNotFilterable, e.Attribute, e.EntityType)
}

func (e *AttributeNotFilterableError) Unwrap() error { return ErrAttributeNotFilterable }

func budgetError(qb *QueryBudget, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w (%s): %w", ErrBudgetExceeded, qb.ExhaustedReason(), cause)
	}
	return fmt.Errorf("%w (%s)", ErrBudgetExceeded, qb.ExhaustedReason())
}
