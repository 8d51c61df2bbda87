// Package rowinfo describes the structural metadata of row types: columns,
// keys, secondary indexes, order-by specs, and the wire header used to
// remote a row's shape. Nothing in this package touches storage; it is the
// vocabulary every other package in this module is built on.
package rowinfo

import "fmt"

// TypeCode identifies a column's underlying storage representation.
// The low bits carry the base type; the high bits carry modifiers.
type TypeCode int32

// Base type codes. Only the handful needed by auto-increment validation and
// by tests are named explicitly; planners are expected to supply codes for
// any other type their row classes declare.
const (
	TypeUint TypeCode = iota
	TypeULong
	TypeInt
	TypeLong
	TypeBool
	TypeFloat
	TypeDouble
	TypeString
	TypeBytes
)

// Modifier bits, ORed into a column's type code to describe how it
// participates in ordering.
const (
	ModNullable TypeCode = 1 << 16
	ModDescending TypeCode = 1 << 17
	ModNullLow    TypeCode = 1 << 18
)

// Base strips modifier bits, returning the underlying storage type.
func (t TypeCode) Base() TypeCode {
	return t &^ (ModNullable | ModDescending | ModNullLow)
}

// IsNullable reports whether the nullable modifier bit is set.
func (t TypeCode) IsNullable() bool { return t&ModNullable != 0 }

// IsDescending reports whether the descending modifier bit is set.
func (t TypeCode) IsDescending() bool { return t&ModDescending != 0 }

// IsNullLow reports whether nulls sort low (only meaningful when nullable).
func (t TypeCode) IsNullLow() bool { return t&ModNullLow != 0 }

// isIntegral reports whether the base type is one of the four integer
// kinds eligible for auto-increment, per RowInfo's invariant.
func (t TypeCode) isIntegral() bool {
	switch t.Base() {
	case TypeUint, TypeULong, TypeInt, TypeLong:
		return true
	default:
		return false
	}
}

// ColumnInfo is the immutable metadata for one named, typed column.
type ColumnInfo struct {
	Name     string
	TypeCode TypeCode
	Nullable bool
	Hidden   bool

	// AutoMin and AutoMax bound an auto-increment column's generated
	// range, inclusive. Equal values mean "not auto".
	AutoMin int64
	AutoMax int64
}

// IsAuto reports whether this column is an auto-increment column.
func (c *ColumnInfo) IsAuto() bool {
	return c.AutoMin != c.AutoMax
}

// normalize clears the null-low modifier on non-nullable primitive columns,
// per the §3 invariant, and validates the auto-increment range.
func (c *ColumnInfo) normalize() error {
	if !c.Nullable && c.TypeCode.Base() != TypeString && c.TypeCode.Base() != TypeBytes {
		c.TypeCode &^= ModNullLow
	}
	if c.IsAuto() {
		if !c.TypeCode.isIntegral() {
			return fmt.Errorf("rowinfo: auto-increment column %q must be uint, ulong, int, or long", c.Name)
		}
		if c.AutoMin > c.AutoMax {
			return fmt.Errorf("rowinfo: auto-increment column %q has autoMin %d > autoMax %d", c.Name, c.AutoMin, c.AutoMax)
		}
	}
	return nil
}

// clone returns a copy safe for a different RowInfo to reference; ColumnInfo
// has no mutable substructure, so this is a shallow copy.
func (c *ColumnInfo) clone() *ColumnInfo {
	cp := *c
	return &cp
}
