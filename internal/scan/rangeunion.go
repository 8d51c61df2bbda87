package scan

import (
	"context"
	"sort"

	"rowtable/internal/storage"
)

// RangeUnionScanController chains a set of disjoint-or-overlapping
// controllers, ordered by ascending lower bound, merging adjacent
// overlapping ranges opportunistically so each row is scanned exactly
// once even when two source ranges collide.
type RangeUnionScanController[R any] struct {
	chain Controller[R]
	size  int64
}

// NewRangeUnionScanController sorts controllers by ascending low bound and
// greedily merges each controller with as many immediate successors as
// TryMerge accepts, then links the results into a Next() chain.
func NewRangeUnionScanController[R any](controllers []Controller[R]) *RangeUnionScanController[R] {
	sorted := append([]Controller[R](nil), controllers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return CompareLow[R](sorted[i], sorted[j]) < 0
	})

	merged := mergeRun(sorted)

	var size int64
	for _, c := range merged {
		size = saturatingAdd(size, c.EstimateSize())
	}

	return &RangeUnionScanController[R]{chain: linkChain(merged), size: size}
}

// mergeRun opportunistically merges each controller in ascending order
// with as many immediate successors as TryMerge accepts.
func mergeRun[R any](sorted []Controller[R]) []Controller[R] {
	var out []Controller[R]
	i := 0
	for i < len(sorted) {
		cur := sorted[i]
		i++
		for i < len(sorted) {
			if m, ok := TryMerge[R](cur, sorted[i]); ok {
				cur = m
				i++
				continue
			}
			break
		}
		out = append(out, cur)
	}
	return out
}

// linkChain wraps every controller in a chainLink whose Next() points at
// its successor's link, and returns the head of that chain.
func linkChain[R any](controllers []Controller[R]) Controller[R] {
	if len(controllers) == 0 {
		return nil
	}
	var head, tail *chainLink[R]
	for _, c := range controllers {
		link := &chainLink[R]{Controller: c}
		if head == nil {
			head = link
		} else {
			tail.next = link
		}
		tail = link
	}
	return head
}

// chainLink overrides Next() on an otherwise-opaque Controller so
// RangeUnionScanController can chain arbitrary controller implementations
// (including merged ones) without requiring them to know their successor
// at construction time.
type chainLink[R any] struct {
	Controller[R]
	next *chainLink[R]
}

func (c *chainLink[R]) Next() Controller[R] {
	if c.next == nil {
		return nil
	}
	return c.next
}

// NewCursor implements Controller by delegating to the first controller
// in the chain.
func (r *RangeUnionScanController[R]) NewCursor(ctx context.Context, view storage.View, txn storage.Transaction) (storage.Cursor, error) {
	if r.chain == nil {
		return nil, nil
	}
	return r.chain.NewCursor(ctx, view, txn)
}

// Evaluator implements Controller.
func (r *RangeUnionScanController[R]) Evaluator() RowEvaluator[R] {
	if r.chain == nil {
		return nil
	}
	return r.chain.Evaluator()
}

// Predicate implements Controller.
func (r *RangeUnionScanController[R]) Predicate() RowPredicate[R] {
	if r.chain == nil {
		return nil
	}
	return r.chain.Predicate()
}

// Next implements Controller. RangeUnionScanController presents itself as
// the first controller in its merged chain (its NewCursor/Evaluator/etc.
// delegate to r.chain), so Next must skip past that first link and return
// whatever follows it.
func (r *RangeUnionScanController[R]) Next() Controller[R] {
	if r.chain == nil {
		return nil
	}
	return r.chain.Next()
}

// EstimateSize implements Controller: the saturating sum of every child's
// estimate, computed once at construction time.
func (r *RangeUnionScanController[R]) EstimateSize() int64 { return r.size }

// IsJoined implements Controller.
func (r *RangeUnionScanController[R]) IsJoined() bool {
	return r.chain != nil && r.chain.IsJoined()
}

// IsReverse implements Controller.
func (r *RangeUnionScanController[R]) IsReverse() bool {
	return r.chain != nil && r.chain.IsReverse()
}

// LowBound implements Controller.
func (r *RangeUnionScanController[R]) LowBound() []byte {
	if r.chain == nil {
		return nil
	}
	return r.chain.LowBound()
}

// LowInclusive implements Controller.
func (r *RangeUnionScanController[R]) LowInclusive() bool {
	return r.chain != nil && r.chain.LowInclusive()
}

// HighBound implements Controller. Like the other accessors it reports the
// first chained controller's bound, which is the range a scan of that
// first controller is confined to; each successor reports its own bound
// once reached through Next.
func (r *RangeUnionScanController[R]) HighBound() []byte {
	if r.chain == nil {
		return nil
	}
	return r.chain.HighBound()
}

// HighInclusive implements Controller, for the first chained controller.
func (r *RangeUnionScanController[R]) HighInclusive() bool {
	return r.chain != nil && r.chain.HighInclusive()
}

// IsEmpty implements Controller.
func (r *RangeUnionScanController[R]) IsEmpty() bool { return r.chain == nil }

// Characteristics implements Controller.
func (r *RangeUnionScanController[R]) Characteristics() Characteristics {
	if r.chain == nil {
		return 0
	}
	return r.chain.Characteristics()
}

var _ Controller[struct{}] = (*RangeUnionScanController[struct{}])(nil)
