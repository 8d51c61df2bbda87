package rowtable

import (
	"bytes"
	"fmt"
	"time"

	"rowtable/internal/derive"
	"rowtable/internal/rowinfo"
)

// Comparator builds a row comparator from an order-by spec string (the
// grammar spec §6 defines: a sequence of ('+'|'-') '!'? identifier
// groups), reading column values through the table's FieldExtractor and
// ordering them per each column's effective type code (ascending or
// descending, nulls low or high).
func (t *Table[R]) Comparator(spec string) (derive.Comparator[R], error) {
	ob, err := rowinfo.ForSpec(t.info, spec)
	if err != nil {
		return nil, err
	}
	rules := ob.Rules()
	return func(a, b *R) int {
		for _, rule := range rules {
			av := t.extract(a, rule.Column.Name)
			bv := t.extract(b, rule.Column.Name)
			c := compareRule(av, bv, rule.EffectiveType)
			if c != 0 {
				return c
			}
		}
		return 0
	}, nil
}

// allColumnsComparator builds the comparator Distinct uses when the
// caller hasn't supplied one of its own: every declared column, ascending,
// nulls low — i.e. plain row equality for dedup purposes.
func (t *Table[R]) allColumnsComparator() derive.Comparator[R] {
	cols := t.info.AllColumns()
	return func(a, b *R) int {
		for _, col := range cols {
			av := t.extract(a, col.Name)
			bv := t.extract(b, col.Name)
			if c := compareValues(av, bv, true); c != 0 {
				return c
			}
		}
		return 0
	}
}

// compareRule orders av, bv per typeCode's descending/null-low modifiers.
func compareRule(av, bv any, typeCode rowinfo.TypeCode) int {
	c := compareValues(av, bv, typeCode.IsNullLow())
	if typeCode.IsDescending() {
		return -c
	}
	return c
}

// compareValues orders two column values of the same declared type.
// nullLow controls where a nil value sorts relative to any non-nil value.
func compareValues(a, b any, nullLow bool) int {
	aNil, bNil := a == nil, b == nil
	if aNil || bNil {
		switch {
		case aNil && bNil:
			return 0
		case aNil:
			if nullLow {
				return -1
			}
			return 1
		default:
			if nullLow {
				return 1
			}
			return -1
		}
	}

	switch av := a.(type) {
	case int64:
		return compareOrdered(av, b.(int64))
	case int32:
		return compareOrdered(av, b.(int32))
	case int:
		return compareOrdered(av, b.(int))
	case float64:
		return compareOrdered(av, b.(float64))
	case float32:
		return compareOrdered(av, b.(float32))
	case string:
		return compareOrdered(av, b.(string))
	case bool:
		return compareOrdered(boolRank(av), boolRank(b.(bool)))
	case []byte:
		return bytes.Compare(av, b.([]byte))
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		default:
			return 0
		}
	default:
		panic(fmt.Sprintf("rowtable: comparator: unsupported column value type %T", a))
	}
}

type ordered interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64 | ~string
}

func compareOrdered[T ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
