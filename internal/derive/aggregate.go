package derive

import "context"

// Aggregator drives one group's accumulation for AggregatedScanner, per
// spec §4.4.
type Aggregator[R any] interface {
	// Begin reseeds the aggregator for a new group starting at seed.
	Begin(seed *R) error
	// Accumulate folds row (known to belong to the current group) in.
	Accumulate(row *R) error
	// Finish populates target with the group's aggregate result. It
	// returns false if the group produced nothing to emit.
	Finish(target *R) (bool, error)
	Close() error
}

// AggregatedScanner groups consecutive source rows that compare equal under
// cmp and asks an Aggregator to reduce each group to zero or one output
// rows, per spec §4.4.
type AggregatedScanner[R any] struct {
	src          Source[R]
	agg          Aggregator[R]
	cmp          Comparator[R]
	finishTarget func(header, row *R) error

	header  *R
	scratch *R
	done    bool
	closed  bool
}

// NewAggregatedScanner builds an AggregatedScanner over src, grouped by cmp.
// finishTarget, if non-nil, post-processes a successfully finished row
// against the group's header before it's returned (e.g. to copy grouping
// columns from header into the aggregate result).
func NewAggregatedScanner[R any](src Source[R], agg Aggregator[R], cmp Comparator[R], finishTarget func(header, row *R) error) *AggregatedScanner[R] {
	return &AggregatedScanner[R]{src: src, agg: agg, cmp: cmp, finishTarget: finishTarget}
}

// Init seeds the aggregator from the source's current row. The caller must
// have already positioned src (e.g. via its own Init) before calling this.
func (s *AggregatedScanner[R]) Init(ctx context.Context) error {
	row := s.src.Row()
	if row == nil {
		s.done = true
		return s.agg.Close()
	}
	s.header = cloneRow(row)
	s.scratch = new(R)
	if err := s.agg.Begin(s.header); err != nil {
		s.closeAll()
		return err
	}
	return nil
}

// Row always returns nil: AggregatedScanner keeps no "current row" outside
// of Step's return value, so callers hold onto what Step last gave them.
func (s *AggregatedScanner[R]) Row() *R { return nil }

// Step advances the source through the rest of the current group (and
// beyond, as needed) and returns the next group's aggregate row, or nil
// once every group has been emitted.
func (s *AggregatedScanner[R]) Step(ctx context.Context, dest *R) (*R, error) {
	if s.done {
		return nil, nil
	}
	for {
		row, err := s.src.Step(ctx, s.scratch)
		if err != nil {
			s.closeAll()
			return nil, err
		}
		if row == nil {
			return s.finalizeGroup(ctx, dest, nil)
		}
		if s.cmp(s.header, row) == 0 {
			if err := s.agg.Accumulate(row); err != nil {
				s.closeAll()
				return nil, err
			}
			continue
		}
		return s.finalizeGroup(ctx, dest, cloneRow(row))
	}
}

// finalizeGroup closes out the current group (header), reseeding the
// aggregator from next if there is one. If Finish reports nothing to emit,
// it reseeds and keeps draining rather than returning an empty row, per
// spec §4.4 step 2.
func (s *AggregatedScanner[R]) finalizeGroup(ctx context.Context, dest, next *R) (*R, error) {
	if dest == nil {
		dest = new(R)
	}
	ok, err := s.agg.Finish(dest)
	if err != nil {
		s.closeAll()
		return nil, err
	}
	if !ok {
		if next == nil {
			s.done = true
			s.closeAll()
			return nil, nil
		}
		s.header = next
		if err := s.agg.Begin(s.header); err != nil {
			s.closeAll()
			return nil, err
		}
		return s.Step(ctx, dest)
	}
	if s.finishTarget != nil {
		if err := s.finishTarget(s.header, dest); err != nil {
			s.closeAll()
			return nil, err
		}
	}
	if next == nil {
		s.done = true
		s.closed = true
		aggErr := s.agg.Close()
		srcErr := s.src.Close()
		if aggErr != nil {
			return dest, aggErr
		}
		if srcErr != nil {
			return dest, srcErr
		}
		return dest, nil
	}
	s.header = next
	if err := s.agg.Begin(s.header); err != nil {
		s.closeAll()
		return nil, err
	}
	return dest, nil
}

func (s *AggregatedScanner[R]) closeAll() {
	s.done = true
	if s.closed {
		return
	}
	s.closed = true
	_ = s.agg.Close()
	_ = s.src.Close()
}

// Close releases the source and the aggregator. It is idempotent.
func (s *AggregatedScanner[R]) Close() error {
	s.done = true
	if s.closed {
		return nil
	}
	s.closed = true
	err1 := s.agg.Close()
	err2 := s.src.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
