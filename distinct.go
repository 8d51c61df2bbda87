package rowtable

import (
	"context"

	"rowtable/internal/derive"
	"rowtable/internal/rowerr"
	"rowtable/internal/storage"
)

// distinctTable decorates a derive.Table[R] so that its whole-table scan
// suppresses adjacent duplicates under cmp, matching spec §4.5's
// UnionScanner (merge + dedup) collapsed onto a single source. Updating
// a distinct view makes no sense (the cursor position a client is
// looking at may not correspond to any single stored row once duplicates
// are folded together), so NewUpdater is unsupported.
type distinctTable[R any] struct {
	derive.Table[R]
	cmp derive.Comparator[R]
}

// NewScanner implements derive.Table: wraps the inner scan in a
// UnionScanner of one source, which is exactly concat-plus-dedup with
// nothing to concatenate.
func (t *distinctTable[R]) NewScanner(ctx context.Context, txn storage.Transaction) (derive.Source[R], error) {
	src, err := t.Table.NewScanner(ctx, txn)
	if err != nil {
		return nil, err
	}
	u := derive.NewUnionScanner([]derive.Source[R]{src}, t.cmp)
	if err := u.Init(ctx); err != nil {
		return nil, err
	}
	return u, nil
}

// NewUpdater implements derive.Table: unsupported on a distinct view.
func (t *distinctTable[R]) NewUpdater(context.Context, storage.Transaction) (any, error) {
	return nil, rowerr.ErrUnsupported
}
