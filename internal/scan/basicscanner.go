package scan

import (
	"context"
	"errors"

	"rowtable/internal/rowerr"
	"rowtable/internal/storage"
)

// Hooks lets updater variants alter a BasicScanner's locking discipline
// without duplicating its iteration logic, per spec §4.2. Every field has
// a working default supplied by NewBasicScanner; callers only need to set
// the ones they want to override.
type Hooks[R any] struct {
	// ToFirst positions cur at the scan's starting end. Default:
	// cur.First, or cur.Last when the controller is reverse.
	ToFirst func(ctx context.Context, cur storage.Cursor, reverse bool) error

	// ToNext advances cur to the next candidate position. Default:
	// cur.Next, or cur.Previous when the controller is reverse.
	ToNext func(ctx context.Context, cur storage.Cursor, reverse bool) error

	// Unlocked is invoked after a row is rejected or stopped, when its
	// lock was freshly acquired by this step; it should release that
	// lock. Default: txn.Unlock().
	Unlocked func(txn storage.Transaction, lockResult storage.LockResult)

	// BeginBatch notifies a streaming consumer that a new controller's
	// sub-scan is starting. Default: no-op.
	BeginBatch func(seed *R, eval RowEvaluator[R])

	// Finished is called once, when the scanner has no more rows.
	// Default: no-op.
	Finished func()
}

func defaultHooks[R any]() Hooks[R] {
	return Hooks[R]{
		ToFirst: func(ctx context.Context, cur storage.Cursor, reverse bool) error {
			if reverse {
				return cur.Last(ctx)
			}
			return cur.First(ctx)
		},
		ToNext: func(ctx context.Context, cur storage.Cursor, reverse bool) error {
			if reverse {
				return cur.Previous(ctx)
			}
			return cur.Next(ctx)
		},
		Unlocked: func(txn storage.Transaction, _ storage.LockResult) {
			if txn != nil {
				txn.Unlock()
			}
		},
		BeginBatch: func(*R, RowEvaluator[R]) {},
		Finished:   func() {},
	}
}

func mergeHooks[R any](h Hooks[R]) Hooks[R] {
	d := defaultHooks[R]()
	if h.ToFirst != nil {
		d.ToFirst = h.ToFirst
	}
	if h.ToNext != nil {
		d.ToNext = h.ToNext
	}
	if h.Unlocked != nil {
		d.Unlocked = h.Unlocked
	}
	if h.BeginBatch != nil {
		d.BeginBatch = h.BeginBatch
	}
	if h.Finished != nil {
		d.Finished = h.Finished
	}
	return d
}

// BasicScanner drives a storage cursor through a chain of Controllers,
// decoding admitted rows through each controller's RowEvaluator, per spec
// §4.2. It is the base every Updater variant in package update builds on.
type BasicScanner[R any] struct {
	Name string // used to identify this scanner in Failure errors

	txn  storage.Transaction
	view storage.View

	controller Controller[R]
	cur        Controller[R] // current position in the chain
	cursor     storage.Cursor
	eval       RowEvaluator[R]

	row    *R
	hooks  Hooks[R]
	done   bool
}

// NewBasicScanner builds a scanner bound to controller, to be advanced
// within txn against view.
func NewBasicScanner[R any](name string, view storage.View, txn storage.Transaction, controller Controller[R], hooks Hooks[R]) *BasicScanner[R] {
	return &BasicScanner[R]{
		Name:       name,
		txn:        txn,
		view:       view,
		controller: controller,
		hooks:      mergeHooks(hooks),
	}
}

// Init positions the cursor at the first row admitted by the controller
// chain, optionally reusing seed as the destination row.
func (s *BasicScanner[R]) Init(ctx context.Context, seed *R) error {
	s.row = seed
	s.cur = s.controller
	if err := s.openCurrentController(ctx); err != nil {
		return s.fail(err)
	}
	row, err := s.advanceToAdmitted(ctx, seed)
	if err != nil {
		return s.fail(err)
	}
	s.row = row
	return nil
}

// Row returns the current decoded row, or nil if the scan is finished.
func (s *BasicScanner[R]) Row() *R { return s.row }

// Cursor exposes the live storage cursor for updater variants that need
// to store/delete at the current position.
func (s *BasicScanner[R]) Cursor() storage.Cursor { return s.cursor }

// Txn exposes the bound transaction.
func (s *BasicScanner[R]) Txn() storage.Transaction { return s.txn }

// Evaluator exposes the evaluator bound to the controller currently being
// scanned.
func (s *BasicScanner[R]) Evaluator() RowEvaluator[R] { return s.eval }

// Step advances to the next admitted row, reusing dest if supplied.
func (s *BasicScanner[R]) Step(ctx context.Context, dest *R) (*R, error) {
	if s.done {
		return nil, nil
	}
	if err := s.toNext(ctx); err != nil {
		if errors.Is(err, rowerr.ErrUnpositionedCursor) {
			if advErr := s.advanceController(ctx); advErr != nil {
				return nil, s.fail(advErr)
			}
			row, err := s.advanceToAdmitted(ctx, dest)
			if err != nil {
				return nil, s.fail(err)
			}
			s.row = row
			return row, nil
		}
		return nil, s.fail(err)
	}
	row, err := s.advanceToAdmitted(ctx, dest)
	if err != nil {
		return nil, s.fail(err)
	}
	s.row = row
	return row, nil
}

// advanceToAdmitted loops evaluating the current cursor position (and
// advancing through controllers in the chain as each is exhausted) until
// an admitted row is found or the chain ends.
func (s *BasicScanner[R]) advanceToAdmitted(ctx context.Context, dest *R) (*R, error) {
	for {
		if s.cursor == nil {
			s.done = true
			s.hooks.Finished()
			return nil, nil
		}
		key := s.cursor.Key()
		if key == nil {
			if err := s.advanceController(ctx); err != nil {
				return nil, err
			}
			if s.cursor == nil {
				s.done = true
				s.hooks.Finished()
				return nil, nil
			}
			continue
		}

		// Keys outside the current controller's bounds are never admitted:
		// one before the scan's starting end is skipped as rejected, and one
		// past its far end finishes that controller.
		before := boundExceeded(key, s.cur.LowBound(), s.cur.LowInclusive(), true)
		past := boundExceeded(key, s.cur.HighBound(), s.cur.HighInclusive(), false)
		if s.cur.IsReverse() {
			before, past = past, before
		}
		if past {
			if err := s.advanceController(ctx); err != nil {
				return nil, err
			}
			continue
		}

		if dest == nil {
			dest = new(R)
		}
		lockResult := s.cursor.LockResult()
		outcome, err := Rejected, error(nil)
		if !before {
			outcome, err = s.eval.EvalRow(ctx, s.cursor, lockResult, dest)
		}
		if err != nil {
			return nil, err
		}

		switch outcome {
		case Admitted:
			return dest, nil
		case Stopped:
			if lockResult.Fresh() {
				s.hooks.Unlocked(s.txn, lockResult)
			}
			// retry the current position
			continue
		default: // Rejected
			if lockResult.Fresh() {
				s.hooks.Unlocked(s.txn, lockResult)
			}
			if err := s.toNext(ctx); err != nil {
				if errors.Is(err, rowerr.ErrUnpositionedCursor) {
					if advErr := s.advanceController(ctx); advErr != nil {
						return nil, advErr
					}
					continue
				}
				return nil, err
			}
		}
	}
}

func (s *BasicScanner[R]) openCurrentController(ctx context.Context) error {
	for s.cur != nil {
		s.eval = s.cur.Evaluator()
		s.hooks.BeginBatch(s.row, s.eval)
		cursor, err := s.cur.NewCursor(ctx, s.view, s.txn)
		if err != nil {
			return err
		}
		s.cursor = cursor
		if err := s.toFirst(ctx); err != nil {
			if errors.Is(err, rowerr.ErrUnpositionedCursor) {
				if advErr := s.advanceController(ctx); advErr != nil {
					return advErr
				}
				continue
			}
			return err
		}
		return nil
	}
	s.cursor = nil
	return nil
}

func (s *BasicScanner[R]) advanceController(ctx context.Context) error {
	if s.cursor != nil {
		_ = s.cursor.Close()
		s.cursor = nil
	}
	if s.cur == nil {
		return nil
	}
	s.cur = s.cur.Next()
	return s.openCurrentController(ctx)
}

func (s *BasicScanner[R]) toFirst(ctx context.Context) error {
	return s.hooks.ToFirst(ctx, s.cursor, s.cur.IsReverse())
}

func (s *BasicScanner[R]) toNext(ctx context.Context) error {
	return s.hooks.ToNext(ctx, s.cursor, s.cur.IsReverse())
}

// EstimateSize reports the controller chain's remaining estimate.
func (s *BasicScanner[R]) EstimateSize() int64 {
	if s.controller == nil {
		return 0
	}
	return s.controller.EstimateSize()
}

// Characteristics reports the controller chain's declared characteristics.
func (s *BasicScanner[R]) Characteristics() Characteristics {
	if s.controller == nil {
		return 0
	}
	return s.controller.Characteristics()
}

// Close releases the cursor. It is idempotent.
func (s *BasicScanner[R]) Close() error {
	s.row = nil
	s.done = true
	if s.cursor == nil {
		return nil
	}
	c := s.cursor
	s.cursor = nil
	return c.Close()
}

func (s *BasicScanner[R]) fail(err error) error {
	if err == nil {
		return nil
	}
	return WrapFailure(s.Name, err)
}
