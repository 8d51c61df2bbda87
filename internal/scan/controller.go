package scan

import (
	"bytes"
	"context"

	"rowtable/internal/storage"
)

// emptyBound is the reserved low-bound sentinel that marks a controller as
// describing an empty range, per spec §3 ("A controller is empty if its
// low bound equals a sentinel EMPTY byte sequence"). No real row key uses
// this exact byte sequence because it is longer than any key component
// boundary the wire format permits standing alone.
var emptyBound = []byte{0x00, 'r', 'o', 'w', 't', 'a', 'b', 'l', 'e', ':', 'E', 'M', 'P', 'T', 'Y', 0x00}

// EmptyBound returns the sentinel used to mark an empty scan range.
func EmptyBound() []byte { return emptyBound }

// Controller describes one scan: a key range, an evaluator, and a
// chaining hook (Next) for multi-range scans, per spec §4.1.
type Controller[R any] interface {
	NewCursor(ctx context.Context, view storage.View, txn storage.Transaction) (storage.Cursor, error)
	Evaluator() RowEvaluator[R]
	Predicate() RowPredicate[R]

	// Next returns the successor controller in a multi-range scan, or
	// nil if this was the last one.
	Next() Controller[R]

	Characteristics() Characteristics
	EstimateSize() int64
	IsJoined() bool
	IsReverse() bool

	LowBound() []byte
	LowInclusive() bool
	HighBound() []byte
	HighInclusive() bool

	// IsEmpty reports whether this controller's low bound is the empty
	// sentinel.
	IsEmpty() bool
}

// CompareLow orders two controllers by their low bound, for sorting
// disjoint ranges before building a RangeUnionScanController.
func CompareLow[R any](a, b Controller[R]) int {
	return compareBound(a.LowBound(), a.LowInclusive(), b.LowBound(), b.LowInclusive(), true)
}

// CompareHigh orders two controllers by their high bound.
func CompareHigh[R any](a, b Controller[R]) int {
	return compareBound(a.HighBound(), a.HighInclusive(), b.HighBound(), b.HighInclusive(), false)
}

// compareBound implements the tie-break rules used throughout this
// package: nil means unbounded (lowest possible for a low bound, highest
// possible for a high bound); equal byte values break ties by
// inclusivity, with an inclusive bound sorting before an exclusive one
// when comparing low bounds (it admits more) and after when comparing
// high bounds.
func compareBound(a []byte, aIncl bool, b []byte, bIncl bool, isLow bool) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		if isLow {
			return -1
		}
		return 1
	}
	if b == nil {
		if isLow {
			return 1
		}
		return -1
	}
	if c := bytes.Compare(a, b); c != 0 {
		return c
	}
	if aIncl == bIncl {
		return 0
	}
	if isLow {
		if aIncl {
			return -1
		}
		return 1
	}
	if aIncl {
		return 1
	}
	return -1
}

// SingleScanController describes one contiguous scan range on one index.
type SingleScanController[R any] struct {
	index     storage.Index
	low       []byte
	lowIncl   bool
	high      []byte
	highIncl  bool
	reverse   bool
	eval      RowEvaluator[R]
	pred      RowPredicate[R]
	chars     Characteristics
	size      int64
	joined    bool
	next      Controller[R]
}

// SingleScanControllerConfig collects SingleScanController's constructor
// arguments; it exists so callers (and generated factories) can build a
// controller with named fields instead of a long positional argument
// list.
type SingleScanControllerConfig[R any] struct {
	Index           storage.Index
	LowBound        []byte
	LowInclusive    bool
	HighBound       []byte
	HighInclusive   bool
	Reverse         bool
	Evaluator       RowEvaluator[R]
	Predicate       RowPredicate[R]
	Characteristics Characteristics
	EstimateSize    int64
	Joined          bool
	Next            Controller[R]
}

// NewSingleScanController builds a SingleScanController from cfg.
func NewSingleScanController[R any](cfg SingleScanControllerConfig[R]) *SingleScanController[R] {
	return &SingleScanController[R]{
		index:    cfg.Index,
		low:      cfg.LowBound,
		lowIncl:  cfg.LowInclusive,
		high:     cfg.HighBound,
		highIncl: cfg.HighInclusive,
		reverse:  cfg.Reverse,
		eval:     cfg.Evaluator,
		pred:     cfg.Predicate,
		chars:    cfg.Characteristics,
		size:     cfg.EstimateSize,
		joined:   cfg.Joined,
		next:     cfg.Next,
	}
}

// NewCursor implements Controller.
func (c *SingleScanController[R]) NewCursor(ctx context.Context, view storage.View, txn storage.Transaction) (storage.Cursor, error) {
	return view.NewCursor(ctx, txn)
}

// Evaluator implements Controller.
func (c *SingleScanController[R]) Evaluator() RowEvaluator[R] { return c.eval }

// Predicate implements Controller.
func (c *SingleScanController[R]) Predicate() RowPredicate[R] { return c.pred }

// Next implements Controller.
func (c *SingleScanController[R]) Next() Controller[R] { return c.next }

// Characteristics implements Controller.
func (c *SingleScanController[R]) Characteristics() Characteristics { return c.chars }

// EstimateSize implements Controller.
func (c *SingleScanController[R]) EstimateSize() int64 { return c.size }

// IsJoined implements Controller.
func (c *SingleScanController[R]) IsJoined() bool { return c.joined }

// IsReverse implements Controller.
func (c *SingleScanController[R]) IsReverse() bool { return c.reverse }

// LowBound implements Controller.
func (c *SingleScanController[R]) LowBound() []byte { return c.low }

// LowInclusive implements Controller.
func (c *SingleScanController[R]) LowInclusive() bool { return c.lowIncl }

// HighBound implements Controller.
func (c *SingleScanController[R]) HighBound() []byte { return c.high }

// HighInclusive implements Controller.
func (c *SingleScanController[R]) HighInclusive() bool { return c.highIncl }

// IsEmpty implements Controller.
func (c *SingleScanController[R]) IsEmpty() bool { return bytes.Equal(c.low, emptyBound) }

// Index returns the index this controller scans, for use by adapters that
// need to open their own cursor rather than going through a storage.View.
func (c *SingleScanController[R]) Index() storage.Index { return c.index }

var _ Controller[struct{}] = (*SingleScanController[struct{}])(nil)
