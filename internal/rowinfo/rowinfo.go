package rowinfo

import (
	"fmt"
	"sync"
)

// ColumnSet is a named, ordered (key, value) column split — the shape
// shared by a primary key, an alternate key, and a secondary index.
type ColumnSet struct {
	Name        string
	keyColumns  *orderedMap[*ColumnInfo]
	valueColumns *orderedMap[*ColumnInfo]
}

// KeyColumns returns the set's key columns in declared order.
func (s *ColumnSet) KeyColumns() []*ColumnInfo { return s.keyColumns.values() }

// ValueColumns returns the set's value columns in declared order.
func (s *ColumnSet) ValueColumns() []*ColumnInfo { return s.valueColumns.values() }

// RowInfo is the immutable structural description of a row type: its full
// name, every column, which columns form the primary key, and any
// alternate keys or secondary indexes declared over it.
//
// RowInfo is built once per row type via Builder and is safe to share
// across goroutines; nothing about it is ever mutated after Build returns.
type RowInfo struct {
	FullName string

	allColumns   *orderedMap[*ColumnInfo]
	keyColumns   *orderedMap[*ColumnInfo]
	valueColumns *orderedMap[*ColumnInfo]

	alternateKeys    []*ColumnSet
	secondaryIndexes []*ColumnSet

	autoColumn *ColumnInfo
}

// AllColumns returns every column in declaration order.
func (r *RowInfo) AllColumns() []*ColumnInfo { return r.allColumns.values() }

// KeyColumns returns the primary key columns, in the order they were
// declared.
func (r *RowInfo) KeyColumns() []*ColumnInfo { return r.keyColumns.values() }

// ValueColumns returns the non-key columns.
func (r *RowInfo) ValueColumns() []*ColumnInfo { return r.valueColumns.values() }

// AlternateKeys returns the row type's alternate keys.
func (r *RowInfo) AlternateKeys() []*ColumnSet { return r.alternateKeys }

// SecondaryIndexes returns the row type's secondary indexes.
func (r *RowInfo) SecondaryIndexes() []*ColumnSet { return r.secondaryIndexes }

// Column looks up a column by name, searching all columns.
func (r *RowInfo) Column(name string) (*ColumnInfo, bool) {
	return r.allColumns.get(name)
}

// AutoColumn returns the row's auto-increment column, if any.
func (r *RowInfo) AutoColumn() (*ColumnInfo, bool) {
	if r.autoColumn == nil {
		return nil, false
	}
	return r.autoColumn, true
}

// HasPrimaryKey reports whether the row type declares at least one key
// column.
func (r *RowInfo) HasPrimaryKey() bool { return r.keyColumns.len() > 0 }

// Builder assembles a RowInfo, validating §3's invariants as columns and
// index descriptors are added, in the same incremental-validation style
// the schema builder in the teacher project uses for tables.
type Builder struct {
	fullName string
	all      *orderedMap[*ColumnInfo]
	keys     *orderedMap[*ColumnInfo]
	values   *orderedMap[*ColumnInfo]
	err      error

	alternateKeys    []*ColumnSet
	secondaryIndexes []*ColumnSet
}

// NewBuilder starts building a RowInfo for the row type named fullName.
func NewBuilder(fullName string) *Builder {
	return &Builder{
		fullName: fullName,
		all:      newOrderedMap[*ColumnInfo](),
		keys:     newOrderedMap[*ColumnInfo](),
		values:   newOrderedMap[*ColumnInfo](),
	}
}

// AddKeyColumn declares a primary-key column, in primary-key order.
func (b *Builder) AddKeyColumn(c ColumnInfo) *Builder {
	return b.addColumn(&c, true)
}

// AddValueColumn declares a non-key column.
func (b *Builder) AddValueColumn(c ColumnInfo) *Builder {
	return b.addColumn(&c, false)
}

func (b *Builder) addColumn(c *ColumnInfo, isKey bool) *Builder {
	if b.err != nil {
		return b
	}
	if c.Name == "" {
		b.err = fmt.Errorf("rowinfo: %s: column name must not be empty", b.fullName)
		return b
	}
	if b.all.has(c.Name) {
		b.err = fmt.Errorf("rowinfo: %s: duplicate column %q", b.fullName, c.Name)
		return b
	}
	if err := c.normalize(); err != nil {
		b.err = fmt.Errorf("rowinfo: %s: %w", b.fullName, err)
		return b
	}
	clone := c.clone()
	b.all.put(clone.Name, clone)
	if isKey {
		b.keys.put(clone.Name, clone)
	} else {
		b.values.put(clone.Name, clone)
	}
	return b
}

// AddAlternateKey declares an alternate key over the given already-added
// column names, split into its own key/value columns (alternate keys are
// fully key columns in this model; value columns are left empty, mirroring
// how a unique index carries no payload of its own).
func (b *Builder) AddAlternateKey(name string, columnNames ...string) *Builder {
	return b.addColumnSet(&b.alternateKeys, name, columnNames)
}

// AddSecondaryIndex declares a secondary index: keyNames form the index's
// own key (sort) order, valueNames are columns it additionally covers.
func (b *Builder) AddSecondaryIndex(name string, keyNames, valueNames []string) *Builder {
	if b.err != nil {
		return b
	}
	set, err := b.buildColumnSet(name, keyNames, valueNames)
	if err != nil {
		b.err = err
		return b
	}
	b.secondaryIndexes = append(b.secondaryIndexes, set)
	return b
}

func (b *Builder) addColumnSet(dst *[]*ColumnSet, name string, keyNames []string) *Builder {
	set, err := b.buildColumnSet(name, keyNames, nil)
	if err != nil {
		b.err = err
		return b
	}
	*dst = append(*dst, set)
	return b
}

func (b *Builder) buildColumnSet(name string, keyNames, valueNames []string) (*ColumnSet, error) {
	keys := newOrderedMapCap[*ColumnInfo](len(keyNames))
	for _, n := range keyNames {
		c, ok := b.all.get(n)
		if !ok {
			return nil, fmt.Errorf("rowinfo: %s: index %q references unknown column %q", b.fullName, name, n)
		}
		keys.put(n, c)
	}
	values := newOrderedMapCap[*ColumnInfo](len(valueNames))
	for _, n := range valueNames {
		c, ok := b.all.get(n)
		if !ok {
			return nil, fmt.Errorf("rowinfo: %s: index %q references unknown column %q", b.fullName, name, n)
		}
		values.put(n, c)
	}
	return &ColumnSet{Name: name, keyColumns: keys, valueColumns: values}, nil
}

// Build validates the accumulated columns and indexes against §3's
// invariants and returns the finished RowInfo.
func (b *Builder) Build() (*RowInfo, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.keys.len() == 0 {
		// A row type without a primary key is legal (derived, aggregated
		// rows commonly lack one); HasPrimaryKey reports false for it.
	}

	var auto *ColumnInfo
	for _, c := range b.all.values() {
		if !c.IsAuto() {
			continue
		}
		if auto != nil {
			return nil, fmt.Errorf("rowinfo: %s: at most one auto-increment column is allowed, found %q and %q", b.fullName, auto.Name, c.Name)
		}
		auto = c
	}

	return &RowInfo{
		FullName:         b.fullName,
		allColumns:       b.all.clone(),
		keyColumns:       b.keys.clone(),
		valueColumns:     b.values.clone(),
		alternateKeys:    append([]*ColumnSet(nil), b.alternateKeys...),
		secondaryIndexes: append([]*ColumnSet(nil), b.secondaryIndexes...),
		autoColumn:       auto,
	}, nil
}

// cache holds one RowInfo per row-type name, built once and reused by every
// Table over that type — RowInfo is immutable, so sharing is free.
var cache sync.Map // map[string]*RowInfo

// Cached returns a previously built RowInfo for fullName, building and
// storing it via build if absent. Concurrent callers racing on the same
// fullName may invoke build more than once; only one result is kept.
func Cached(fullName string, build func() (*RowInfo, error)) (*RowInfo, error) {
	if v, ok := cache.Load(fullName); ok {
		return v.(*RowInfo), nil
	}
	info, err := build()
	if err != nil {
		return nil, err
	}
	actual, _ := cache.LoadOrStore(fullName, info)
	return actual.(*RowInfo), nil
}
