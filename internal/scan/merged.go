package scan

import (
	"bytes"
	"context"

	"rowtable/internal/storage"
)

// Merge mode constants, per spec §4.1.
const (
	modeBeforeOverlap = 0
	modeInOverlap     = 1
	modePastLowOnly   = 2
	modePastHighOnly  = 3
)

// MergedScanController merges two overlapping single-range controllers
// produced for the same table into one that scans the union of their
// ranges exactly once each.
//
// Unlike every other Controller in this package, MergedScanController
// carries genuinely mutable state (mode): it tracks which of the two
// source ranges the cursor currently sits inside as iteration proceeds. A
// MergedScanController instance is therefore scoped to a single scan, the
// same way a Scanner owns its cursor for its lifetime.
type MergedScanController[R any] struct {
	low, high Controller[R]
	reverse   bool
	mode      int
}

// TryMerge attempts to merge low and high into one controller. It
// succeeds iff neither is empty, low's high bound is at or past high's
// low bound (ties broken by inclusivity), and both share the same reverse
// flag. The second return value is false when no merge is possible.
func TryMerge[R any](low, high Controller[R]) (*MergedScanController[R], bool) {
	if low.IsEmpty() || high.IsEmpty() {
		return nil, false
	}
	if low.IsReverse() != high.IsReverse() {
		return nil, false
	}
	if overlapCompare(low.HighBound(), low.HighInclusive(), high.LowBound(), high.LowInclusive()) < 0 {
		return nil, false
	}
	return &MergedScanController[R]{low: low, high: high, reverse: low.IsReverse()}, true
}

// overlapCompare compares a high bound to a low bound for the purpose of
// deciding whether two ranges touch: a nil bound is unbounded (always
// satisfies the overlap test on its side), and equal byte values overlap
// only if both sides are inclusive at that boundary.
func overlapCompare(highBound []byte, highIncl bool, lowBound []byte, lowIncl bool) int {
	if highBound == nil || lowBound == nil {
		return 1
	}
	c := bytes.Compare(highBound, lowBound)
	if c != 0 {
		return c
	}
	if highIncl && lowIncl {
		return 0
	}
	return -1
}

// NewCursor implements Controller by opening the low controller's cursor.
// The union range [min(low.low, high.low), max(low.high, high.high)] is
// what LowBound and HighBound report.
func (m *MergedScanController[R]) NewCursor(ctx context.Context, view storage.View, txn storage.Transaction) (storage.Cursor, error) {
	return m.low.NewCursor(ctx, view, txn)
}

// Evaluator implements Controller; it returns the merged controller
// itself as its own evaluator, since EvalRow needs to consult and update
// the merge mode on every call.
func (m *MergedScanController[R]) Evaluator() RowEvaluator[R] { return mergedEvaluator[R]{m} }

// Predicate implements Controller. The merged controller folds predicate
// logic into EvalRow via mode, so there is no separate residual
// predicate to report.
func (m *MergedScanController[R]) Predicate() RowPredicate[R] { return nil }

// Next implements Controller.
func (m *MergedScanController[R]) Next() Controller[R] { return nil }

// Characteristics implements Controller.
func (m *MergedScanController[R]) Characteristics() Characteristics {
	return m.low.Characteristics() & m.high.Characteristics()
}

// EstimateSize implements Controller: the sum of both sources, saturating
// on overflow.
func (m *MergedScanController[R]) EstimateSize() int64 {
	return saturatingAdd(m.low.EstimateSize(), m.high.EstimateSize())
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if sum < a || sum < b {
		return int64(^uint64(0) >> 1)
	}
	return sum
}

// IsJoined implements Controller.
func (m *MergedScanController[R]) IsJoined() bool { return m.low.IsJoined() || m.high.IsJoined() }

// IsReverse implements Controller.
func (m *MergedScanController[R]) IsReverse() bool { return m.reverse }

// LowBound implements Controller: the lesser of the two low bounds.
func (m *MergedScanController[R]) LowBound() []byte {
	if CompareLow[R](m.low, m.high) <= 0 {
		return m.low.LowBound()
	}
	return m.high.LowBound()
}

// LowInclusive implements Controller.
func (m *MergedScanController[R]) LowInclusive() bool {
	if CompareLow[R](m.low, m.high) <= 0 {
		return m.low.LowInclusive()
	}
	return m.high.LowInclusive()
}

// HighBound implements Controller: the greater of the two high bounds.
func (m *MergedScanController[R]) HighBound() []byte {
	if CompareHigh[R](m.low, m.high) >= 0 {
		return m.low.HighBound()
	}
	return m.high.HighBound()
}

// HighInclusive implements Controller.
func (m *MergedScanController[R]) HighInclusive() bool {
	if CompareHigh[R](m.low, m.high) >= 0 {
		return m.low.HighInclusive()
	}
	return m.high.HighInclusive()
}

// IsEmpty implements Controller; a successfully merged controller is
// never empty (TryMerge already rejected that case).
func (m *MergedScanController[R]) IsEmpty() bool { return false }

// mergedEvaluator adapts a *MergedScanController to RowEvaluator,
// updating the controller's mode on every EvalRow call based on the
// cursor's current key relative to the two source ranges' high bounds.
type mergedEvaluator[R any] struct {
	m *MergedScanController[R]
}

func (e mergedEvaluator[R]) updateMode(key []byte) {
	m := e.m
	pastLowHigh := boundExceeded(key, m.low.HighBound(), m.low.HighInclusive(), m.reverse)
	pastHighHigh := boundExceeded(key, m.high.HighBound(), m.high.HighInclusive(), m.reverse)
	inOverlap := !boundExceeded(key, m.high.LowBound(), m.high.LowInclusive(), true)

	switch m.mode {
	case modeBeforeOverlap:
		if pastLowHigh {
			m.mode = modePastHighOnly
		} else if inOverlap {
			m.mode = modeInOverlap
		}
	case modeInOverlap:
		if pastLowHigh {
			m.mode = modePastHighOnly
		} else if pastHighHigh {
			m.mode = modePastLowOnly
		}
	}
	// modePastLowOnly and modePastHighOnly are terminal for the
	// remainder of the scan.
}

// boundExceeded reports whether key is past bound (beyond the admitted
// range), honoring inclusivity and scan direction. A nil bound is never
// exceeded (unbounded on that side).
func boundExceeded(key, bound []byte, inclusive, reverse bool) bool {
	if bound == nil || key == nil {
		return false
	}
	c := bytes.Compare(key, bound)
	if reverse {
		c = -c
	}
	if c > 0 {
		return true
	}
	if c == 0 {
		return !inclusive
	}
	return false
}

// EvalRow implements RowEvaluator. Per mode: 0/2 use the low evaluator
// alone, 3 uses the high evaluator alone, and 1 (in the overlap) tries low
// first and falls back to high, admitting the row if either source's
// residual predicate accepts it.
func (e mergedEvaluator[R]) EvalRow(ctx context.Context, cur storage.Cursor, lockResult storage.LockResult, row *R) (Outcome, error) {
	e.updateMode(cur.Key())
	m := e.m
	switch m.mode {
	case modePastHighOnly:
		return m.high.Evaluator().EvalRow(ctx, cur, lockResult, row)
	case modePastLowOnly:
		return m.low.Evaluator().EvalRow(ctx, cur, lockResult, row)
	case modeInOverlap:
		outcome, err := m.low.Evaluator().EvalRow(ctx, cur, lockResult, row)
		if err != nil || outcome == Admitted {
			return outcome, err
		}
		return m.high.Evaluator().EvalRow(ctx, cur, lockResult, row)
	default: // modeBeforeOverlap
		return m.low.Evaluator().EvalRow(ctx, cur, lockResult, row)
	}
}

// DecodeRow, WriteRow, UpdateKey, and UpdateValue always delegate to the
// low evaluator, which the caller guarantees is semantically equivalent
// to the high one (both were produced for the same table), per §4.1.
func (e mergedEvaluator[R]) DecodeRow(key, value []byte, row *R) error {
	return e.m.low.Evaluator().DecodeRow(key, value, row)
}

func (e mergedEvaluator[R]) WriteRow(row *R) ([]byte, []byte, error) {
	return e.m.low.Evaluator().WriteRow(row)
}

func (e mergedEvaluator[R]) UpdateKey(row *R, currentKey []byte) ([]byte, error) {
	return e.m.low.Evaluator().UpdateKey(row, currentKey)
}

func (e mergedEvaluator[R]) UpdateValue(row *R, currentValue []byte) ([]byte, error) {
	return e.m.low.Evaluator().UpdateValue(row, currentValue)
}

var _ Controller[struct{}] = (*MergedScanController[struct{}])(nil)
var _ RowEvaluator[struct{}] = mergedEvaluator[struct{}]{}
