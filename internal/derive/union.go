package derive

import "context"

// UnionScanner is spec §4.5's UnionQuery scanner: conceptually concat plus
// distinct, implemented as a merge over a comparator that sorts by the
// union key, with consecutive duplicates suppressed downstream.
type UnionScanner[R any] struct {
	merged  *MergeScanner[R]
	cmp     Comparator[R]
	last    *R
	hasLast bool
}

// NewUnionScanner builds a UnionScanner over sources (each already
// positioned by the caller), ordered and deduplicated by cmp.
func NewUnionScanner[R any](sources []Source[R], cmp Comparator[R]) *UnionScanner[R] {
	return &UnionScanner[R]{merged: NewMergeScanner(sources, cmp), cmp: cmp}
}

// Init seeds the dedup state from the merged source's current row.
func (s *UnionScanner[R]) Init(ctx context.Context) error {
	if row := s.merged.Row(); row != nil {
		s.last = cloneRow(row)
		s.hasLast = true
	}
	return nil
}

// Row implements Source.
func (s *UnionScanner[R]) Row() *R { return s.merged.Row() }

// Step implements Source: it advances the underlying merge, silently
// skipping any row that compares equal to the last one returned.
func (s *UnionScanner[R]) Step(ctx context.Context, dest *R) (*R, error) {
	for {
		row, err := s.merged.Step(ctx, dest)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, nil
		}
		if s.hasLast && s.cmp(s.last, row) == 0 {
			continue
		}
		s.last = cloneRow(row)
		s.hasLast = true
		return row, nil
	}
}

// Close implements Source.
func (s *UnionScanner[R]) Close() error { return s.merged.Close() }
