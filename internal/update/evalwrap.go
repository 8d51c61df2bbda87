package update

import (
	"context"

	"rowtable/internal/scan"
	"rowtable/internal/storage"
)

// evalWrapController decorates every controller in a chain so that
// Evaluator() runs through wrap, while everything else (including Next,
// which must itself return a wrapped successor so the decoration survives
// across controller boundaries) delegates to the embedded Controller.
type evalWrapController[R any] struct {
	scan.Controller[R]
	wrap func(scan.RowEvaluator[R]) scan.RowEvaluator[R]
}

func wrapChain[R any](head scan.Controller[R], wrap func(scan.RowEvaluator[R]) scan.RowEvaluator[R]) scan.Controller[R] {
	if head == nil {
		return nil
	}
	return &evalWrapController[R]{Controller: head, wrap: wrap}
}

// Evaluator implements scan.Controller.
func (c *evalWrapController[R]) Evaluator() scan.RowEvaluator[R] {
	return c.wrap(c.Controller.Evaluator())
}

// Next implements scan.Controller.
func (c *evalWrapController[R]) Next() scan.Controller[R] {
	return wrapChain(c.Controller.Next(), c.wrap)
}

var _ scan.Controller[struct{}] = (*evalWrapController[struct{}])(nil)

// skipFilterEvaluator rejects any row whose key is in skip before
// delegating to the wrapped evaluator, implementing spec §4.3 step 4: a
// key-changing update that moved a row forward in scan order must not
// let the same scanner observe it again later in the same pass.
type skipFilterEvaluator[R any] struct {
	scan.RowEvaluator[R]
	skip *skipSet
}

// EvalRow implements scan.RowEvaluator.
func (e skipFilterEvaluator[R]) EvalRow(ctx context.Context, cur storage.Cursor, lockResult storage.LockResult, row *R) (scan.Outcome, error) {
	if e.skip != nil && e.skip.len() > 0 && e.skip.contains(cur.Key()) {
		return scan.Rejected, nil
	}
	return e.RowEvaluator.EvalRow(ctx, cur, lockResult, row)
}

func skipFilterWrap[R any](skip *skipSet) func(scan.RowEvaluator[R]) scan.RowEvaluator[R] {
	return func(base scan.RowEvaluator[R]) scan.RowEvaluator[R] {
		return skipFilterEvaluator[R]{RowEvaluator: base, skip: skip}
	}
}
