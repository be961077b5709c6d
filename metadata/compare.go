package metadata

import (
	"cmp"
	"strings"
)

// Equal reports whether a and b are equal. Int and Float compare numerically.
func Equal(a, b Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}

	if isNumber(a) && isNumber(b) {
		if a.Kind == KindInt && b.Kind == KindInt {
			return a.I64 == b.I64
		}
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return af == bf
	}

	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindString:
		return a.s == b.s
	case KindBool:
		return a.B == b.B
	case KindArray:
		if len(a.A) != len(b.A) {
			return false
		}
		for i := range a.A {
			if !Equal(a.A[i], b.A[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two comparable values. Numbers compare with numbers,
// strings with strings and booleans with booleans (false first). The second
// result is false for any other combination.
func Compare(a, b Value) (int, bool) {
	switch {
	case isNumber(a) && isNumber(b):
		if a.Kind == KindInt && b.Kind == KindInt {
			return cmp.Compare(a.I64, b.I64), true
		}
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return cmp.Compare(af, bf), true
	case a.Kind == KindString && b.Kind == KindString:
		return strings.Compare(a.s.Value(), b.s.Value()), true
	case a.Kind == KindBool && b.Kind == KindBool:
		switch {
		case a.B == b.B:
			return 0, true
		case b.B:
			return -1, true
		default:
			return 1, true
		}
	default:
		return 0, false
	}
}

// InRange reports whether v lies within [from, to]. A null bound is open.
func InRange(v, from, to Value) bool {
	if !from.IsNull() {
		c, ok := Compare(v, from)
		if !ok || c < 0 {
			return false
		}
	}
	if !to.IsNull() {
		c, ok := Compare(v, to)
		if !ok || c > 0 {
			return false
		}
	}
	return true
}

func isNumber(v Value) bool {
	return v.Kind == KindInt || v.Kind == KindFloat
}
