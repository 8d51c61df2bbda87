package rowinfo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedSpec is returned when an order-by or query spec string does
// not match the grammar described in §6.
var ErrMalformedSpec = errors.New("rowinfo: malformed spec")

// Rule is one column's contribution to an OrderBy: the column it sorts by,
// and the effective type code after the spec's +/-/! modifiers have been
// applied (which may differ from the column's own declared type code only
// in the descending and null-low bits).
type Rule struct {
	Column           *ColumnInfo
	EffectiveType TypeCode
}

// OrderBy is an insertion-ordered name -> Rule mapping, along with the
// canonical string form it was parsed from (or would produce).
type OrderBy struct {
	rules *orderedMap[Rule]
	spec  string
}

// Rules returns the ordering rules in declaration order.
func (o *OrderBy) Rules() []Rule { return o.rules.values() }

// Names returns the ordered column names.
func (o *OrderBy) Names() []string { return o.rules.keys() }

// Len reports the number of ordering rules.
func (o *OrderBy) Len() int { return o.rules.len() }

// Spec returns the canonical string form, as accepted by ForSpec.
func (o *OrderBy) Spec() string { return o.spec }

// Rule looks up the ordering rule for a column name.
func (o *OrderBy) Rule(name string) (Rule, bool) { return o.rules.get(name) }

// ForSpec parses an order-by string against info's columns: a sequence of
// ('+' | '-') '!'? identifier groups, one per ordered column. '+' ascending,
// '-' descending; a following '!' makes nulls sort low instead of the
// column's default. Duplicate column names after the first occurrence are
// ignored, matching the source's exhaustive-but-idempotent parse. An empty
// string means "no order" and parses to a zero-length OrderBy.
func ForSpec(info *RowInfo, spec string) (*OrderBy, error) {
	rules := newOrderedMap[Rule]()
	i := 0
	n := len(spec)
	for i < n {
		descending := false
		switch spec[i] {
		case '+':
			i++
		case '-':
			descending = true
			i++
		default:
			return nil, fmt.Errorf("%w: %q: expected '+' or '-' at offset %d", ErrMalformedSpec, spec, i)
		}

		nullLow := false
		if i < n && spec[i] == '!' {
			nullLow = true
			i++
		}

		start := i
		for i < n && spec[i] != '+' && spec[i] != '-' {
			i++
		}
		name := spec[start:i]
		if name == "" {
			return nil, fmt.Errorf("%w: %q: empty column name at offset %d", ErrMalformedSpec, spec, start)
		}

		if rules.has(name) {
			// Already have a rule for this column; ignore the repeat, but
			// the spec remains otherwise well-formed.
			continue
		}

		col, ok := info.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q: unknown column %q", ErrMalformedSpec, spec, name)
		}

		effective := col.TypeCode &^ (ModDescending | ModNullLow)
		if descending {
			effective |= ModDescending
		}
		if nullLow {
			effective |= ModNullLow
		}

		rules.put(name, Rule{Column: col, EffectiveType: effective})
	}

	return &OrderBy{rules: rules, spec: canonicalSpec(rules)}, nil
}

// canonicalSpec re-renders the parsed rules into their canonical form, so
// that ForSpec(info, ob.Spec()) always round-trips to an equal OrderBy, per
// §8's testable property.
func canonicalSpec(rules *orderedMap[Rule]) string {
	var b strings.Builder
	for _, name := range rules.keys() {
		r, _ := rules.get(name)
		if r.EffectiveType.IsDescending() {
			b.WriteByte('-')
		} else {
			b.WriteByte('+')
		}
		if r.EffectiveType.IsNullLow() {
			b.WriteByte('!')
		}
		b.WriteString(name)
	}
	return b.String()
}

// Equal reports whether two OrderBy values describe the same ordering:
// same columns, in the same order, with the same effective type codes.
func (o *OrderBy) Equal(other *OrderBy) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.spec == other.spec
}
