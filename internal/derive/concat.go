package derive

import (
	"context"

	"rowtable/internal/storage"
)

// ConcatScanner chains sources left to right: when one is exhausted, it
// advances to the next, per spec §4.5.
type ConcatScanner[R any] struct {
	sources []Source[R]
	idx     int
}

// NewConcatScanner builds a ConcatScanner over sources, each of which must
// already be positioned (Init'd) by the caller.
func NewConcatScanner[R any](sources []Source[R]) *ConcatScanner[R] {
	return &ConcatScanner[R]{sources: sources}
}

// Row returns the current source's current row. It does not look past the
// current source: while that source is empty, Row returns nil even if a
// later source has rows (Step moves on to them).
func (s *ConcatScanner[R]) Row() *R {
	if s.idx >= len(s.sources) {
		return nil
	}
	return s.sources[s.idx].Row()
}

// Step advances the current source, moving on to the next source in the
// chain once the current one is exhausted.
func (s *ConcatScanner[R]) Step(ctx context.Context, dest *R) (*R, error) {
	for s.idx < len(s.sources) {
		row, err := s.sources[s.idx].Step(ctx, dest)
		if err != nil {
			return nil, err
		}
		if row != nil {
			return row, nil
		}
		if err := s.sources[s.idx].Close(); err != nil {
			return nil, err
		}
		s.idx++
		if s.idx < len(s.sources) {
			if row := s.sources[s.idx].Row(); row != nil {
				return row, nil
			}
		}
	}
	return nil, nil
}

// Close releases every source not yet exhausted. It is idempotent.
func (s *ConcatScanner[R]) Close() error {
	var first error
	for ; s.idx < len(s.sources); s.idx++ {
		if err := s.sources[s.idx].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// DeleteAller is implemented by a query source that can delete every row it
// matches and report how many it removed.
type DeleteAller interface {
	DeleteAll(ctx context.Context, txn storage.Transaction) (int64, error)
}

// ConcatQuery composes several DeleteAller sources so a single deleteAll
// call sums their counts inside one nested transaction scope, per spec
// §4.5.
type ConcatQuery[R any] struct {
	Name    string
	Sources []DeleteAller
}

// DeleteAll implements DeleteAller: it enters a nested scope, runs
// DeleteAll against every source in order, and commits only if every
// source succeeds.
func (q *ConcatQuery[R]) DeleteAll(ctx context.Context, txn storage.Transaction) (int64, error) {
	scope, err := txn.Enter(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, src := range q.Sources {
		n, err := src.DeleteAll(ctx, txn)
		if err != nil {
			_ = scope.Exit()
			return 0, err
		}
		total += n
	}
	if err := txn.Commit(ctx); err != nil {
		_ = scope.Exit()
		return 0, err
	}
	if err := scope.Exit(); err != nil {
		return 0, err
	}
	return total, nil
}
