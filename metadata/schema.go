package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAttribute is returned when a document carries an attribute
	// the schema does not define.
	ErrUnknownAttribute = errors.New("unknown attribute")
	// ErrTypeMismatch is returned when an attribute value does not match its
	// declared type.
	ErrTypeMismatch = errors.New("attribute type mismatch")
)

// FieldType defines the data type of an attribute.
type FieldType uint8

const (
	FieldTypeAny FieldType = iota
	FieldTypeInt
	FieldTypeFloat
	FieldTypeString
	FieldTypeBool
	FieldTypeArray
)

// String returns the string representation of the FieldType.
func (t FieldType) String() string {
	switch t {
	case FieldTypeAny:
		return "Any"
	case FieldTypeInt:
		return "Int"
	case FieldTypeFloat:
		return "Float"
	case FieldTypeString:
		return "String"
	case FieldTypeBool:
		return "Bool"
	case FieldTypeArray:
		return "Array"
	default:
		return "Unknown"
	}
}

// ParseFieldType parses the names produced by FieldType.String, case-sensitive.
func ParseFieldType(s string) (FieldType, error) {
	for t := FieldTypeAny; t <= FieldTypeArray; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return FieldTypeAny, fmt.Errorf("unknown field type %q", s)
}

// Schema maps attribute names to their declared types.
type Schema map[string]FieldType

// Validate checks that every attribute of doc is declared and has the
// declared type. Null values are always accepted. A nil schema accepts
// everything.
func (s Schema) Validate(doc Document) error {
	if s == nil {
		return nil
	}
	for k, v := range doc {
		expectedType, ok := s[k]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownAttribute, k)
		}

		if !Accepts(expectedType, v) {
			return fmt.Errorf("%w: %q has type %s, expected %s", ErrTypeMismatch, k, v.Kind, expectedType)
		}
	}
	return nil
}

// Accepts reports whether v may be stored in an attribute of type t.
func Accepts(t FieldType, v Value) bool {
	k := v.Kind
	if k == KindNull {
		return true
	}
	switch t {
	case FieldTypeAny:
		return true
	case FieldTypeInt:
		return k == KindInt
	case FieldTypeFloat:
		return k == KindFloat || k == KindInt // Allow upgrading Int to Float
	case FieldTypeString:
		return k == KindString
	case FieldTypeBool:
		return k == KindBool
	case FieldTypeArray:
		return k == KindArray
	}
	return false
}
