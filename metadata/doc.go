// Package metadata provides the typed attribute values stored on entities.
//
// # Values
//
// Attribute values can be:
//
//   - Int: metadata.Int(2024)
//   - Float: metadata.Float(3.14)
//   - String: metadata.String("tech")
//   - Bool: metadata.Bool(true)
//   - Array: metadata.Array([]metadata.Value{...})
//   - Null: metadata.Null()
//
// Example:
//
//	attrs := metadata.Document{
//	    "code":      metadata.String("iphone-15"),
//	    "price":     metadata.Float(999),
//	    "published": metadata.Bool(true),
//	}
//
// String values are interned with the unique package, so repetitive attribute
// values cost one allocation per distinct value.
//
// # Ordering
//
// Compare orders numbers, strings and booleans; Int and Float are compared
// numerically. Inverted indexes bucket values by Value.Key, after Normalize
// so that 3 and 3.0 share a bucket.
//
// # Schema
//
// Schema maps attribute names to a FieldType. Validate rejects undeclared
// attributes and values of the wrong type.
package metadata
