// Package rowtable is the client-facing facade spec §6 describes:
// Table[R], Query[R], Scanner[R], and Updater[R]. It wires the internal
// packages together — scan's controllers and basic scanner, update's
// updater variants, derive's composition helpers, cache's single-flight
// lookups, trigger's secondary-index bookkeeping, and launcher's narrow
// retry — behind the row-generic surface a query planner or codegen
// layer is expected to drive.
package rowtable

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"rowtable/internal/derive"
	"rowtable/internal/rowerr"
	"rowtable/internal/rowinfo"
	"rowtable/internal/scan"
	"rowtable/internal/storage"
	"rowtable/internal/trigger"
	"rowtable/internal/update"
)

// Scanner is spec §6's client-facing Scanner<R>.
type Scanner[R any] interface {
	Row() *R
	Step(ctx context.Context, dest *R) (*R, error)
	Close() error
	EstimateSize() int64
	Characteristics() scan.Characteristics
}

// SortedScanner is a Scanner additionally able to report the comparator
// its output is sorted under; required whenever Characteristics has
// CharSorted set, per spec §6 ("getComparator ... required if SORTED,
// else fails with IllegalState").
type SortedScanner[R any] interface {
	Scanner[R]
	Comparator() derive.Comparator[R]
}

// Updater extends Scanner with the in-place update/delete operations spec
// §4.3 describes.
type Updater[R any] interface {
	Scanner[R]
	Update(ctx context.Context, row *R) error
	Delete(ctx context.Context, row *R) error
}

// FieldExtractor reads a named column's value off row, used by Comparator
// to build an order-by comparator without the facade needing to know R's
// field layout.
type FieldExtractor[R any] func(row *R, column string) any

// Table is spec §6's client-facing Table<R>: row-shape helpers delegated
// to source, plus named queries, a distinct() decorator, and an
// order-by-spec comparator builder.
type Table[R any] struct {
	mu      sync.RWMutex
	source  derive.Table[R]
	info    *rowinfo.RowInfo
	extract FieldExtractor[R]
	queries map[string]scan.Factory[R]
	closed  bool

	// view, index, trig, and predicateLock back query-restricted scanner
	// and updater construction (Query.NewScanner/NewUpdater); they are
	// nil for a purely composed table (e.g. one built over ConcatTable)
	// that only ever scans through source's own default NewScanner.
	view          storage.View
	index         storage.Index
	trig          func() *trigger.Trigger
	predicateLock storage.RowPredicateLock
}

// New builds a Table over source, describing its rows with info and
// reading column values (for Comparator) through extract.
func New[R any](source derive.Table[R], info *rowinfo.RowInfo, extract FieldExtractor[R]) *Table[R] {
	return &Table[R]{
		source:  source,
		info:    info,
		extract: extract,
		queries: make(map[string]scan.Factory[R]),
	}
}

// WithPrimaryIndex attaches the storage index and view a registered
// query's scanner/updater construction scans and writes through, plus the
// current secondary-index trigger accessor and row-predicate lock a
// key-changing update needs. Returns t for chaining.
func (t *Table[R]) WithPrimaryIndex(view storage.View, index storage.Index, trig func() *trigger.Trigger, predicateLock storage.RowPredicateLock) *Table[R] {
	t.view = view
	t.index = index
	t.trig = trig
	t.predicateLock = predicateLock
	return t
}

// RowType reports R's reflect.Type.
func (t *Table[R]) RowType() reflect.Type {
	return reflect.TypeOf((*R)(nil)).Elem()
}

// HasPrimaryKey reports whether the row type declares key columns.
func (t *Table[R]) HasPrimaryKey() bool { return t.info.HasPrimaryKey() }

// NewRow implements the row-shape delegation Table<R> requires.
func (t *Table[R]) NewRow() *R { return t.source.NewRow() }

// CloneRow implements the row-shape delegation Table<R> requires.
func (t *Table[R]) CloneRow(row *R) *R { return t.source.CloneRow(row) }

// CopyRow implements the row-shape delegation Table<R> requires.
func (t *Table[R]) CopyRow(dst, src *R) { t.source.CopyRow(dst, src) }

// UnsetRow implements the row-shape delegation Table<R> requires.
func (t *Table[R]) UnsetRow(row *R) { t.source.UnsetRow(row) }

// CleanRow implements the row-shape delegation Table<R> requires.
func (t *Table[R]) CleanRow(row *R) { t.source.CleanRow(row) }

// IsSet implements the row-shape delegation Table<R> requires.
func (t *Table[R]) IsSet(row *R) bool { return t.source.IsSet(row) }

// ForEach implements the row-shape delegation Table<R> requires.
func (t *Table[R]) ForEach(row *R, fn func(col int, val any)) { t.source.ForEach(row, fn) }

// TryLoad looks up key directly, when the underlying source supports it.
func (t *Table[R]) TryLoad(ctx context.Context, txn storage.Transaction, key []byte) (*R, bool, error) {
	if err := t.checkOpen(); err != nil {
		return nil, false, err
	}
	return t.source.TryLoad(ctx, txn, key)
}

// Exists reports whether key is present.
func (t *Table[R]) Exists(ctx context.Context, txn storage.Transaction, key []byte) (bool, error) {
	if err := t.checkOpen(); err != nil {
		return false, err
	}
	return t.source.Exists(ctx, txn, key)
}

// IsEmpty reports whether the table has no rows at all.
func (t *Table[R]) IsEmpty(ctx context.Context, txn storage.Transaction) (bool, error) {
	if err := t.checkOpen(); err != nil {
		return false, err
	}
	return t.source.IsEmpty(ctx, txn)
}

// AnyRows reports whether the table has at least one row.
func (t *Table[R]) AnyRows(ctx context.Context, txn storage.Transaction) (bool, error) {
	if err := t.checkOpen(); err != nil {
		return false, err
	}
	return t.source.AnyRows(ctx, txn)
}

// IsClosed reports whether Close has been called.
func (t *Table[R]) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Close marks the table closed. Idempotent, per spec §7's "close is
// always idempotent".
func (t *Table[R]) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *Table[R]) checkOpen() error {
	if t.IsClosed() {
		return rowerr.ErrClosedIndex
	}
	return nil
}

// NewScanner builds a whole-table Scanner with no query restriction, via
// the underlying source's default scan.
func (t *Table[R]) NewScanner(ctx context.Context, txn storage.Transaction) (Scanner[R], error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	src, err := t.source.NewScanner(ctx, txn)
	if err != nil {
		return nil, err
	}
	return sourceScanner[R]{src}, nil
}

// NewUpdater builds a whole-table Updater, if the underlying source
// supports updating.
func (t *Table[R]) NewUpdater(ctx context.Context, txn storage.Transaction) (Updater[R], error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	raw, err := t.source.NewUpdater(ctx, txn)
	if err != nil {
		return nil, err
	}
	u, ok := raw.(Updater[R])
	if !ok {
		return nil, fmt.Errorf("%w: this table's source does not support update", rowerr.ErrUnsupported)
	}
	return u, nil
}

// RegisterQuery names a Factory for later lookup by Query. Typically
// called once, at table construction, by the planner/codegen layer that
// built factory.
func (t *Table[R]) RegisterQuery(name string, factory scan.Factory[R]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queries[name] = factory
}

// Query looks up a named, pre-registered Factory and wraps it as a
// client-facing Query<R>.
func (t *Table[R]) Query(name string) (*Query[R], error) {
	t.mu.RLock()
	factory, ok := t.queries[name]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("rowtable: no query named %q registered on this table", name)
	}
	return &Query[R]{table: t, factory: factory}, nil
}

// Distinct wraps the table so its whole-table scan suppresses adjacent
// duplicate rows under the table's all-columns comparator, spec §4.5's
// UnionScanner dedup behavior applied to a single source.
func (t *Table[R]) Distinct() *Table[R] {
	dt := New[R](&distinctTable[R]{Table: t.source, cmp: t.allColumnsComparator()}, t.info, t.extract)
	dt.queries = t.queries
	dt.view, dt.index, dt.trig, dt.predicateLock = t.view, t.index, t.trig, t.predicateLock
	return dt
}

// sourceScanner adapts derive.Source[R] (the minimal scan surface every
// internal scanner implements) up to the client-facing Scanner[R], which
// additionally reports EstimateSize/Characteristics when the underlying
// source happens to provide them.
type sourceScanner[R any] struct {
	derive.Source[R]
}

func (s sourceScanner[R]) EstimateSize() int64 {
	if sized, ok := s.Source.(interface{ EstimateSize() int64 }); ok {
		return sized.EstimateSize()
	}
	return -1
}

func (s sourceScanner[R]) Characteristics() scan.Characteristics {
	if c, ok := s.Source.(interface{ Characteristics() scan.Characteristics }); ok {
		return c.Characteristics()
	}
	return 0
}

var _ Scanner[int] = sourceScanner[int]{}
var _ Scanner[int] = (*scan.BasicScanner[int])(nil)
var _ Updater[int] = (*update.BasicUpdater[int])(nil)
