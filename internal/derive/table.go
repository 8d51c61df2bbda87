package derive

import (
	"context"

	"rowtable/internal/rowerr"
	"rowtable/internal/storage"
)

// Table is the row-shape and derived-table contract spec §4.5–§4.6
// describe: row allocation/copy helpers every composed table delegates to
// its first source, plus the load/existence/scan operations a query
// planner drives.
type Table[R any] interface {
	NewRow() *R
	CloneRow(row *R) *R
	CopyRow(dst, src *R)
	IsSet(row *R) bool
	ForEach(row *R, fn func(col int, val any))
	UnsetRow(row *R)
	CleanRow(row *R)

	TryLoad(ctx context.Context, txn storage.Transaction, key []byte) (*R, bool, error)
	Exists(ctx context.Context, txn storage.Transaction, key []byte) (bool, error)
	IsEmpty(ctx context.Context, txn storage.Transaction) (bool, error)
	AnyRows(ctx context.Context, txn storage.Transaction) (bool, error)

	NewScanner(ctx context.Context, txn storage.Transaction) (Source[R], error)
	NewUpdater(ctx context.Context, txn storage.Transaction) (any, error)
}

// MultiSourceTable is the common base for tables composed of several
// sources presenting the same row type, per spec §4.5: it delegates every
// row-shape method to the first source and exposes a short-circuited
// anyRows across all of them. tryLoad and exists are unsupported on a
// composed table, since a single key range no longer identifies one
// source.
type MultiSourceTable[R any] struct {
	Sources []Table[R]
}

func (t *MultiSourceTable[R]) first() Table[R] { return t.Sources[0] }

// NewRow implements Table.
func (t *MultiSourceTable[R]) NewRow() *R { return t.first().NewRow() }

// CloneRow implements Table.
func (t *MultiSourceTable[R]) CloneRow(row *R) *R { return t.first().CloneRow(row) }

// CopyRow implements Table.
func (t *MultiSourceTable[R]) CopyRow(dst, src *R) { t.first().CopyRow(dst, src) }

// IsSet implements Table.
func (t *MultiSourceTable[R]) IsSet(row *R) bool { return t.first().IsSet(row) }

// ForEach implements Table.
func (t *MultiSourceTable[R]) ForEach(row *R, fn func(col int, val any)) { t.first().ForEach(row, fn) }

// UnsetRow implements Table.
func (t *MultiSourceTable[R]) UnsetRow(row *R) { t.first().UnsetRow(row) }

// CleanRow implements Table.
func (t *MultiSourceTable[R]) CleanRow(row *R) { t.first().CleanRow(row) }

// TryLoad implements Table: unsupported on a composed multi-source table.
func (t *MultiSourceTable[R]) TryLoad(ctx context.Context, txn storage.Transaction, key []byte) (*R, bool, error) {
	return nil, false, rowerr.ErrViewConstraint
}

// Exists implements Table: unsupported on a composed multi-source table.
func (t *MultiSourceTable[R]) Exists(ctx context.Context, txn storage.Transaction, key []byte) (bool, error) {
	return false, rowerr.ErrViewConstraint
}

// IsEmpty implements Table: true only if every source is empty.
func (t *MultiSourceTable[R]) IsEmpty(ctx context.Context, txn storage.Transaction) (bool, error) {
	for _, src := range t.Sources {
		empty, err := src.IsEmpty(ctx, txn)
		if err != nil {
			return false, err
		}
		if !empty {
			return false, nil
		}
	}
	return true, nil
}

// AnyRows implements Table: a short-circuited OR across sources.
func (t *MultiSourceTable[R]) AnyRows(ctx context.Context, txn storage.Transaction) (bool, error) {
	for _, src := range t.Sources {
		ok, err := src.AnyRows(ctx, txn)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ConcatTable is the static composer of spec §4.5: on construction it
// flattens any source that is itself a ConcatTable over the same row type.
// It holds no comparator: NewScanner always scans with ConcatScanner and
// never builds a MergeScanner.
type ConcatTable[R any] struct {
	MultiSourceTable[R]
}

// NewConcatTable builds a ConcatTable from sources, flattening any source
// that is itself a *ConcatTable[R] so nested concatenations collapse to one
// flat source list.
func NewConcatTable[R any](sources []Table[R]) *ConcatTable[R] {
	flat := make([]Table[R], 0, len(sources))
	for _, src := range sources {
		if inner, ok := src.(*ConcatTable[R]); ok {
			flat = append(flat, inner.Sources...)
			continue
		}
		flat = append(flat, src)
	}
	return &ConcatTable[R]{MultiSourceTable: MultiSourceTable[R]{Sources: flat}}
}

// NewScanner implements Table: an unordered concat. Callers with an
// order-by clause should build a MergeScanner directly over the same
// sources instead (ConcatTable.Sources), per spec §4.5's "empty -> Concat,
// otherwise Merge with a comparator built from the spec" rule — that
// decision belongs to the query planner, not this composer.
func (t *ConcatTable[R]) NewScanner(ctx context.Context, txn storage.Transaction) (Source[R], error) {
	sources := make([]Source[R], len(t.Sources))
	for i, src := range t.Sources {
		s, err := src.NewScanner(ctx, txn)
		if err != nil {
			return nil, err
		}
		sources[i] = s
	}
	return NewConcatScanner(sources), nil
}

// NewUpdater implements Table: unsupported, since updates against a
// composed multi-source table must route through whichever source actually
// owns the current row (see MergeUpdater for the ordered case).
func (t *ConcatTable[R]) NewUpdater(ctx context.Context, txn storage.Transaction) (any, error) {
	return nil, rowerr.ErrUnsupported
}

// identityRow is IdentityTable's sole, columnless row.
type identityRow struct{}

// identityScanner yields identityRow exactly once.
type identityScanner struct {
	emitted bool
}

func (s *identityScanner) Row() *identityRow {
	if s.emitted {
		return nil
	}
	return &identityRow{}
}

func (s *identityScanner) Step(_ context.Context, dest *identityRow) (*identityRow, error) {
	s.emitted = true
	return nil, nil
}

func (s *identityScanner) Close() error { return nil }

// IdentityTable is spec §4.6's unit of join: exactly one row with no
// columns. newScanner yields a one-shot scanner; tryLoad and exists are
// always true; newUpdater fails since it is unmodifiable.
type IdentityTable struct{}

var _ Table[identityRow] = IdentityTable{}

// NewRow implements Table.
func (IdentityTable) NewRow() *identityRow { return &identityRow{} }

// CloneRow implements Table.
func (IdentityTable) CloneRow(row *identityRow) *identityRow { return &identityRow{} }

// CopyRow implements Table.
func (IdentityTable) CopyRow(dst, src *identityRow) {}

// IsSet implements Table: the identity row is always fully set.
func (IdentityTable) IsSet(*identityRow) bool { return true }

// ForEach implements Table: there are no columns to visit.
func (IdentityTable) ForEach(*identityRow, func(int, any)) {}

// UnsetRow implements Table.
func (IdentityTable) UnsetRow(*identityRow) {}

// CleanRow implements Table.
func (IdentityTable) CleanRow(*identityRow) {}

// TryLoad implements Table: always succeeds with the identity row.
func (IdentityTable) TryLoad(context.Context, storage.Transaction, []byte) (*identityRow, bool, error) {
	return &identityRow{}, true, nil
}

// Exists implements Table: always true.
func (IdentityTable) Exists(context.Context, storage.Transaction, []byte) (bool, error) {
	return true, nil
}

// IsEmpty implements Table: never empty.
func (IdentityTable) IsEmpty(context.Context, storage.Transaction) (bool, error) { return false, nil }

// AnyRows implements Table: always true.
func (IdentityTable) AnyRows(context.Context, storage.Transaction) (bool, error) { return true, nil }

// NewScanner implements Table: a one-shot scanner over the single row.
func (IdentityTable) NewScanner(context.Context, storage.Transaction) (Source[identityRow], error) {
	return &identityScanner{}, nil
}

// NewUpdater implements Table: IdentityTable is unmodifiable.
func (IdentityTable) NewUpdater(context.Context, storage.Transaction) (any, error) {
	return nil, rowerr.ErrUnsupported
}

// emptyScanner never yields a row.
type emptyScanner[R any] struct{}

func (emptyScanner[R]) Row() *R                                     { return nil }
func (emptyScanner[R]) Step(context.Context, *R) (*R, error)        { return nil, nil }
func (emptyScanner[R]) Close() error                                { return nil }

// EmptyTable wraps a derived-false table and fixes it to appear
// consistently empty, per spec §4.6, while still delegating row-shape
// methods and NewUpdater to the wrapped table. It does no query validation
// of its own.
type EmptyTable[R any] struct {
	Table[R]
}

// NewEmptyTable wraps inner so every read reports empty regardless of
// inner's actual contents.
func NewEmptyTable[R any](inner Table[R]) *EmptyTable[R] { return &EmptyTable[R]{Table: inner} }

// TryLoad implements Table: always misses.
func (t *EmptyTable[R]) TryLoad(context.Context, storage.Transaction, []byte) (*R, bool, error) {
	return nil, false, nil
}

// Exists implements Table: always false.
func (t *EmptyTable[R]) Exists(context.Context, storage.Transaction, []byte) (bool, error) {
	return false, nil
}

// IsEmpty implements Table: always true.
func (t *EmptyTable[R]) IsEmpty(context.Context, storage.Transaction) (bool, error) { return true, nil }

// AnyRows implements Table: always false.
func (t *EmptyTable[R]) AnyRows(context.Context, storage.Transaction) (bool, error) { return false, nil }

// NewScanner implements Table: a scanner that never yields a row.
func (t *EmptyTable[R]) NewScanner(context.Context, storage.Transaction) (Source[R], error) {
	return emptyScanner[R]{}, nil
}
