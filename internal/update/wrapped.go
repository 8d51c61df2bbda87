package update

import (
	"context"

	"rowtable/internal/storage"
)

// ScannerLike is the minimal surface WrappedUpdater needs from the
// scanner it wraps.
type ScannerLike[R any] interface {
	Row() *R
	Step(ctx context.Context, dest *R) (*R, error)
	Close() error
}

// RowMutator is a table's row-level mutation API: unlike BasicUpdater,
// WrappedUpdater has no cursor of its own to store/delete through, so it
// drives changes through the table instead, per spec §4.3's
// WrappedUpdater row.
type RowMutator[R any] interface {
	UpdateRow(ctx context.Context, row *R) error
	DeleteRow(ctx context.Context, row *R) error
}

// WrappedUpdater adapts a plain Scanner into an Updater by routing
// Update/Delete through a RowMutator instead of a live cursor.
type WrappedUpdater[R any] struct {
	src     ScannerLike[R]
	mutator RowMutator[R]
}

// NewWrappedUpdater builds a WrappedUpdater over src, applying mutations
// through mutator.
func NewWrappedUpdater[R any](src ScannerLike[R], mutator RowMutator[R]) *WrappedUpdater[R] {
	return &WrappedUpdater[R]{src: src, mutator: mutator}
}

// Row implements ScannerLike.
func (u *WrappedUpdater[R]) Row() *R { return u.src.Row() }

// Step implements ScannerLike.
func (u *WrappedUpdater[R]) Step(ctx context.Context, dest *R) (*R, error) {
	return u.src.Step(ctx, dest)
}

// Close implements ScannerLike.
func (u *WrappedUpdater[R]) Close() error { return u.src.Close() }

// Update applies row through the table's row-level API, then advances
// the wrapped scanner.
func (u *WrappedUpdater[R]) Update(ctx context.Context, row *R) error {
	if err := u.mutator.UpdateRow(ctx, row); err != nil {
		return err
	}
	_, err := u.src.Step(ctx, nil)
	return err
}

// Delete removes row through the table's row-level API, then advances
// the wrapped scanner.
func (u *WrappedUpdater[R]) Delete(ctx context.Context, row *R) error {
	if err := u.mutator.DeleteRow(ctx, row); err != nil {
		return err
	}
	_, err := u.src.Step(ctx, nil)
	return err
}

// EndCommitWrappedUpdater commits txn exactly once, whenever the wrapped
// scanner finishes, errors, or is explicitly closed, per spec §4.3's
// WrappedUpdater.EndCommit variant.
type EndCommitWrappedUpdater[R any] struct {
	*WrappedUpdater[R]
	txn       storage.Transaction
	committed bool
}

// NewEndCommitWrappedUpdater builds an EndCommitWrappedUpdater.
func NewEndCommitWrappedUpdater[R any](src ScannerLike[R], mutator RowMutator[R], txn storage.Transaction) *EndCommitWrappedUpdater[R] {
	return &EndCommitWrappedUpdater[R]{WrappedUpdater: NewWrappedUpdater(src, mutator), txn: txn}
}

func (u *EndCommitWrappedUpdater[R]) commitOnce(ctx context.Context) error {
	if u.committed {
		return nil
	}
	u.committed = true
	return u.txn.Commit(ctx)
}

// Step implements ScannerLike, committing once the wrapped scanner either
// errors or reports the scan finished (a nil row with no error).
func (u *EndCommitWrappedUpdater[R]) Step(ctx context.Context, dest *R) (*R, error) {
	row, err := u.WrappedUpdater.Step(ctx, dest)
	if err != nil {
		_ = u.commitOnce(ctx)
		return nil, err
	}
	if row == nil {
		if cerr := u.commitOnce(ctx); cerr != nil {
			return nil, cerr
		}
	}
	return row, nil
}

// Close commits (if not already) and closes the wrapped scanner.
func (u *EndCommitWrappedUpdater[R]) Close() error {
	cerr := u.commitOnce(context.Background())
	serr := u.WrappedUpdater.Close()
	if cerr != nil {
		return cerr
	}
	return serr
}
