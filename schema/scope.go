package schema

import (
	"fmt"
	"strings"
)

// Scope partitions the entities of a collection into independently indexed
// sets.
type Scope uint8

const (
	// ScopeLive holds the entities served to regular queries.
	ScopeLive Scope = iota + 1
	// ScopeArchived holds soft-deleted entities.
	ScopeArchived
)

// AllScopes lists every scope in declaration order.
var AllScopes = []Scope{ScopeLive, ScopeArchived}

// String returns the string representation of the Scope.
func (s Scope) String() string {
	switch s {
	case ScopeLive:
		return "LIVE"
	case ScopeArchived:
		return "ARCHIVED"
	default:
		return "UNKNOWN"
	}
}

// ParseScope parses LIVE or ARCHIVED, ignoring case.
func ParseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LIVE":
		return ScopeLive, nil
	case "ARCHIVED":
		return ScopeArchived, nil
	default:
		return 0, fmt.Errorf("unknown scope %q", s)
	}
}

// ScopeSet is a small immutable set of scopes.
type ScopeSet uint8

// DefaultScopes is used by queries that do not restrict scopes explicitly.
var DefaultScopes = NewScopeSet(ScopeLive)

// NewScopeSet creates a set of the given scopes.
func NewScopeSet(scopes ...Scope) ScopeSet {
	var s ScopeSet
	for _, sc := range scopes {
		s |= 1 << sc
	}
	return s
}

// Contains reports whether sc is a member of the set.
func (s ScopeSet) Contains(sc Scope) bool { return s&(1<<sc) != 0 }

// IsEmpty reports whether the set has no members.
func (s ScopeSet) IsEmpty() bool { return s == 0 }

// Intersect returns the scopes present in both sets.
func (s ScopeSet) Intersect(o ScopeSet) ScopeSet { return s & o }

// Difference returns the scopes of s missing in o.
func (s ScopeSet) Difference(o ScopeSet) ScopeSet { return s &^ o }

// Scopes returns the members in declaration order.
func (s ScopeSet) Scopes() []Scope {
	out := make([]Scope, 0, len(AllScopes))
	for _, sc := range AllScopes {
		if s.Contains(sc) {
			out = append(out, sc)
		}
	}
	return out
}

func (s ScopeSet) String() string {
	parts := make([]string, 0, len(AllScopes))
	for _, sc := range s.Scopes() {
		parts = append(parts, sc.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
