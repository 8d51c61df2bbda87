package update

import (
	"context"

	"rowtable/internal/rowerr"
	"rowtable/internal/storage"
)

// upgradableHooks wraps the default toFirst/toNext so positioning happens
// under upgradable-read lock mode, restoring the transaction's previous
// mode once positioning completes, per spec §4.3's UpgradableUpdater row.
func upgradableHooks[R any](txn storage.Transaction) (toFirst func(context.Context, storage.Cursor, bool) error, toNext func(context.Context, storage.Cursor, bool) error) {
	around := func(fn func(context.Context, storage.Cursor, bool) error) func(context.Context, storage.Cursor, bool) error {
		return func(ctx context.Context, cur storage.Cursor, reverse bool) error {
			prev := txn.SetLockMode(storage.LockModeUpgradable)
			defer txn.SetLockMode(prev)
			return fn(ctx, cur, reverse)
		}
	}
	defaultToFirst := func(ctx context.Context, cur storage.Cursor, reverse bool) error {
		if reverse {
			return cur.Last(ctx)
		}
		return cur.First(ctx)
	}
	defaultToNext := func(ctx context.Context, cur storage.Cursor, reverse bool) error {
		if reverse {
			return cur.Previous(ctx)
		}
		return cur.Next(ctx)
	}
	return around(defaultToFirst), around(defaultToNext)
}

// NewUpgradableUpdater builds a BasicUpdater that temporarily switches the
// transaction to upgradable-read lock mode around toFirst/toNext.
func NewUpgradableUpdater[R any](cfg Config[R]) *BasicUpdater[R] {
	toFirst, toNext := upgradableHooks[R](cfg.Txn)
	cfg.Hooks.ToFirst = toFirst
	cfg.Hooks.ToNext = toNext
	return NewBasicUpdater(cfg)
}

// NewNonRepeatableUpdater builds a BasicUpdater that behaves like
// UpgradableUpdater, and additionally releases the previous row's lock
// when it was freshly acquired and the scan steps past it, per spec
// §4.3's NonRepeatableUpdater row.
func NewNonRepeatableUpdater[R any](cfg Config[R]) *BasicUpdater[R] {
	toFirst, baseToNext := upgradableHooks[R](cfg.Txn)
	cfg.Hooks.ToFirst = toFirst
	cfg.Hooks.ToNext = func(ctx context.Context, cur storage.Cursor, reverse bool) error {
		if cur.LockResult().Fresh() {
			cfg.Txn.Unlock()
		}
		return baseToNext(ctx, cur, reverse)
	}
	return NewBasicUpdater(cfg)
}

// AutoCommitUpdater commits the transaction after every store/delete, and
// on Close commits and exits the outer scope it opened at construction,
// per spec §4.3's AutoCommitUpdater row.
type AutoCommitUpdater[R any] struct {
	*BasicUpdater[R]
	scope storage.Scope
}

// NewAutoCommitUpdater builds an AutoCommitUpdater, opening the outer
// transaction scope that Close later commits and exits.
func NewAutoCommitUpdater[R any](ctx context.Context, cfg Config[R]) (*AutoCommitUpdater[R], error) {
	baseToNext := func(ctx context.Context, cur storage.Cursor, reverse bool) error {
		if reverse {
			return cur.Previous(ctx)
		}
		return cur.Next(ctx)
	}
	if cfg.Hooks.ToNext != nil {
		baseToNext = cfg.Hooks.ToNext
	}
	cfg.Hooks.ToNext = func(ctx context.Context, cur storage.Cursor, reverse bool) error {
		if cur.LockResult().Fresh() {
			cfg.Txn.Unlock()
		}
		return baseToNext(ctx, cur, reverse)
	}

	scope, err := cfg.Txn.Enter(ctx)
	if err != nil {
		return nil, err
	}
	return &AutoCommitUpdater[R]{BasicUpdater: NewBasicUpdater(cfg), scope: scope}, nil
}

// Update applies row, commits, and advances, shadowing BasicUpdater.Update
// to insert the per-operation commit.
func (u *AutoCommitUpdater[R]) Update(ctx context.Context, row *R) error {
	cur := u.Cursor()
	if cur == nil || cur.Key() == nil {
		return rowerr.ErrNoCurrentRow
	}
	if err := u.store(ctx, row, cur); err != nil {
		return err
	}
	if err := u.txn.Commit(ctx); err != nil {
		return err
	}
	_, err := u.Step(ctx, nil)
	return err
}

// Delete removes the current row, commits, and advances.
func (u *AutoCommitUpdater[R]) Delete(ctx context.Context, row *R) error {
	cur := u.Cursor()
	if cur == nil || cur.Key() == nil {
		return rowerr.ErrNoCurrentRow
	}
	if err := u.delete(ctx, row, cur); err != nil {
		return err
	}
	if err := u.txn.Commit(ctx); err != nil {
		return err
	}
	_, err := u.Step(ctx, nil)
	return err
}

// Close commits the transaction and exits the outer scope before closing
// the underlying scanner. It is idempotent: a second Close sees scope
// already nil'd out and just closes the scanner again (itself idempotent).
func (u *AutoCommitUpdater[R]) Close() error {
	if u.scope != nil {
		_ = u.txn.Commit(context.Background())
		err := u.scope.Exit()
		u.scope = nil
		if err != nil {
			_ = u.BasicScanner.Close()
			return err
		}
	}
	return u.BasicScanner.Close()
}
