package derive

import (
	"context"

	"rowtable/internal/rowerr"
)

// mergeMid splits n sources using half-even ("banker's") rounding of n/2,
// per spec §4.5's "Building a balanced tree from N sources uses half-even
// rounding (mid = start + round(len/2))".
func mergeMid(n int) int {
	q, r := n/2, n%2
	if r == 0 {
		return q
	}
	// n is odd: the fractional part is exactly .5, so round to the
	// nearest even neighbor of q.
	if q%2 == 0 {
		return q
	}
	return q + 1
}

// mergeNode is one node of the balanced binary merge tree: a leaf wraps a
// single source, an internal node picks the smaller of its two children's
// current rows.
type mergeNode[R any] struct {
	left, right *mergeNode[R]
	leaf        Source[R]
	cmp         Comparator[R]
}

// buildMergeTree builds a balanced binary tree over sources using
// mergeMid's split point at every level.
func buildMergeTree[R any](sources []Source[R], cmp Comparator[R]) *mergeNode[R] {
	if len(sources) == 1 {
		return &mergeNode[R]{leaf: sources[0], cmp: cmp}
	}
	m := mergeMid(len(sources))
	return &mergeNode[R]{
		left:  buildMergeTree(sources[:m], cmp),
		right: buildMergeTree(sources[m:], cmp),
		cmp:   cmp,
	}
}

func (n *mergeNode[R]) Row() *R {
	if n.leaf != nil {
		return n.leaf.Row()
	}
	l, r := n.left.Row(), n.right.Row()
	switch {
	case l == nil:
		return r
	case r == nil:
		return l
	case n.cmp(l, r) <= 0:
		return l
	default:
		return r
	}
}

// Step advances whichever child currently holds the smaller row, then
// returns the tree's new minimum — which may now come from the other
// child, not the one that just advanced.
func (n *mergeNode[R]) Step(ctx context.Context, dest *R) (*R, error) {
	if n.leaf != nil {
		return n.leaf.Step(ctx, dest)
	}
	l, r := n.left.Row(), n.right.Row()
	var err error
	switch {
	case l == nil && r == nil:
		return nil, nil
	case l == nil:
		_, err = n.right.Step(ctx, dest)
	case r == nil:
		_, err = n.left.Step(ctx, dest)
	case n.cmp(l, r) <= 0:
		_, err = n.left.Step(ctx, dest)
	default:
		_, err = n.right.Step(ctx, dest)
	}
	if err != nil {
		return nil, err
	}
	row := n.Row()
	if row == nil {
		return nil, nil
	}
	if dest != nil && row != dest {
		*dest = *row
		return dest, nil
	}
	return row, nil
}

func (n *mergeNode[R]) Close() error {
	if n.leaf != nil {
		return n.leaf.Close()
	}
	err1 := n.left.Close()
	err2 := n.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// MergeScanner performs a binary-tree merge of several sorted sources,
// always yielding the smallest current row across all of them, per spec
// §4.5.
type MergeScanner[R any] struct {
	root *mergeNode[R]
}

// NewMergeScanner builds a MergeScanner over sources (each already
// positioned by the caller), ordered by cmp.
func NewMergeScanner[R any](sources []Source[R], cmp Comparator[R]) *MergeScanner[R] {
	return &MergeScanner[R]{root: buildMergeTree(sources, cmp)}
}

// Row implements Source.
func (s *MergeScanner[R]) Row() *R { return s.root.Row() }

// Step implements Source.
func (s *MergeScanner[R]) Step(ctx context.Context, dest *R) (*R, error) {
	return s.root.Step(ctx, dest)
}

// Close implements Source.
func (s *MergeScanner[R]) Close() error { return s.root.Close() }

// Mutator is a Source whose current row can be updated or deleted in
// place, the shape package update's BasicUpdater variants satisfy.
type Mutator[R any] interface {
	Source[R]
	UpdateRow(ctx context.Context, row *R) error
	DeleteRow(ctx context.Context, row *R) error
}

// mergeMutNode mirrors mergeNode but over Mutators, so Update/Delete can be
// routed to whichever leaf currently holds the head row.
type mergeMutNode[R any] struct {
	left, right *mergeMutNode[R]
	leaf        Mutator[R]
	cmp         Comparator[R]
}

func buildMergeMutTree[R any](muts []Mutator[R], cmp Comparator[R]) *mergeMutNode[R] {
	if len(muts) == 1 {
		return &mergeMutNode[R]{leaf: muts[0], cmp: cmp}
	}
	m := mergeMid(len(muts))
	return &mergeMutNode[R]{
		left:  buildMergeMutTree(muts[:m], cmp),
		right: buildMergeMutTree(muts[m:], cmp),
		cmp:   cmp,
	}
}

// active returns the child currently holding the smaller (or only
// non-exhausted) row, or nil if both children are exhausted.
func (n *mergeMutNode[R]) active() *mergeMutNode[R] {
	l, r := n.left.Row(), n.right.Row()
	switch {
	case l == nil && r == nil:
		return nil
	case l == nil:
		return n.right
	case r == nil:
		return n.left
	case n.cmp(l, r) <= 0:
		return n.left
	default:
		return n.right
	}
}

func (n *mergeMutNode[R]) Row() *R {
	if n.leaf != nil {
		return n.leaf.Row()
	}
	if a := n.active(); a != nil {
		return a.Row()
	}
	return nil
}

// Step advances the currently active child, then returns the tree's new
// minimum (see mergeNode.Step).
func (n *mergeMutNode[R]) Step(ctx context.Context, dest *R) (*R, error) {
	if n.leaf != nil {
		return n.leaf.Step(ctx, dest)
	}
	a := n.active()
	if a == nil {
		return nil, nil
	}
	if _, err := a.Step(ctx, dest); err != nil {
		return nil, err
	}
	row := n.Row()
	if row == nil {
		return nil, nil
	}
	if dest != nil && row != dest {
		*dest = *row
		return dest, nil
	}
	return row, nil
}

func (n *mergeMutNode[R]) UpdateRow(ctx context.Context, row *R) error {
	if n.leaf != nil {
		return n.leaf.UpdateRow(ctx, row)
	}
	a := n.active()
	if a == nil {
		return rowerr.ErrNoCurrentRow
	}
	return a.UpdateRow(ctx, row)
}

func (n *mergeMutNode[R]) DeleteRow(ctx context.Context, row *R) error {
	if n.leaf != nil {
		return n.leaf.DeleteRow(ctx, row)
	}
	a := n.active()
	if a == nil {
		return rowerr.ErrNoCurrentRow
	}
	return a.DeleteRow(ctx, row)
}

func (n *mergeMutNode[R]) Close() error {
	if n.leaf != nil {
		return n.leaf.Close()
	}
	err1 := n.left.Close()
	err2 := n.right.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// MergeUpdater is spec §4.5's MergeUpdater: the same balanced-tree merge as
// MergeScanner, but routing UpdateRow/DeleteRow to whichever child is
// currently at the head. It satisfies both Source and Mutator, so it can be
// used directly as package update's WrappedUpdater building blocks.
type MergeUpdater[R any] struct {
	root *mergeMutNode[R]
}

// NewMergeUpdater builds a MergeUpdater over muts (each already positioned
// by the caller), ordered by cmp.
func NewMergeUpdater[R any](muts []Mutator[R], cmp Comparator[R]) *MergeUpdater[R] {
	return &MergeUpdater[R]{root: buildMergeMutTree(muts, cmp)}
}

// Row implements Source.
func (u *MergeUpdater[R]) Row() *R { return u.root.Row() }

// Step implements Source.
func (u *MergeUpdater[R]) Step(ctx context.Context, dest *R) (*R, error) {
	return u.root.Step(ctx, dest)
}

// Close implements Source.
func (u *MergeUpdater[R]) Close() error { return u.root.Close() }

// UpdateRow implements Mutator.
func (u *MergeUpdater[R]) UpdateRow(ctx context.Context, row *R) error {
	return u.root.UpdateRow(ctx, row)
}

// DeleteRow implements Mutator.
func (u *MergeUpdater[R]) DeleteRow(ctx context.Context, row *R) error {
	return u.root.DeleteRow(ctx, row)
}
