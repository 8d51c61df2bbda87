// Package update implements spec §4.3's updater family: BasicUpdater and
// its locking-policy variants, layered on package scan's BasicScanner. An
// Updater extends a Scanner with update(row) and delete(row), which apply
// a pending change at the cursor's current position and then step to the
// next admitted row.
package update

import (
	"bytes"
	"context"
	"errors"

	"rowtable/internal/rowerr"
	"rowtable/internal/scan"
	"rowtable/internal/storage"
	"rowtable/internal/trigger"
)

// Config collects BasicUpdater's constructor arguments.
type Config[R any] struct {
	Name string

	// Index is the storage index update/delete apply to: store-in-place
	// writes go through the live cursor, but a key-changing update
	// deletes at the old key and inserts at the new one, which needs the
	// full Index contract (not just the narrower View a pure Scanner
	// needs).
	Index storage.Index
	// View is the index the scan iterates. It equals Index for every
	// variant except JoinedUpdater, which scans a secondary index but
	// mutates through the primary.
	View storage.View
	Txn  storage.Transaction

	Controller scan.Controller[R]
	Hooks      scan.Hooks[R]

	// Trigger is the table's current secondary-index trigger, or nil for
	// a table with no secondary indexes.
	Trigger *trigger.Trigger
	// ReloadTrigger refetches the table's current trigger when Trigger
	// is observed DISABLED mid-operation, per spec §4.3 step 2.
	ReloadTrigger func() *trigger.Trigger

	// PredicateLock guards the delete-insert path's row-predicate lock,
	// required whenever Controller can produce a key-changing update.
	PredicateLock storage.RowPredicateLock
}

// BasicUpdater is the base updater: default transaction lock mode, no
// extra locking discipline around step/toFirst/toNext.
type BasicUpdater[R any] struct {
	*scan.BasicScanner[R]

	index         storage.Index
	txn           storage.Transaction
	trig          *trigger.Trigger
	reloadTrigger func() *trigger.Trigger
	predLock      storage.RowPredicateLock
	skip          *skipSet
	reverse       bool
}

// NewBasicUpdater builds a BasicUpdater from cfg.
func NewBasicUpdater[R any](cfg Config[R]) *BasicUpdater[R] {
	skip := &skipSet{}
	wrapped := wrapChain(cfg.Controller, skipFilterWrap[R](skip))
	view := cfg.View
	if view == nil {
		view = cfg.Index
	}
	scanner := scan.NewBasicScanner(cfg.Name, view, cfg.Txn, wrapped, cfg.Hooks)
	reverse := false
	if cfg.Controller != nil {
		reverse = cfg.Controller.IsReverse()
	}
	return &BasicUpdater[R]{
		BasicScanner:  scanner,
		index:         cfg.Index,
		txn:           cfg.Txn,
		trig:          cfg.Trigger,
		reloadTrigger: cfg.ReloadTrigger,
		predLock:      cfg.PredicateLock,
		skip:          skip,
		reverse:       reverse,
	}
}

// Update applies row at the cursor's current position, then advances to
// the next admitted row, per spec §4.3.
func (u *BasicUpdater[R]) Update(ctx context.Context, row *R) error {
	cur := u.Cursor()
	if cur == nil || cur.Key() == nil {
		return rowerr.ErrNoCurrentRow
	}
	if err := u.store(ctx, row, cur); err != nil {
		return err
	}
	_, err := u.Step(ctx, nil)
	return err
}

// Delete removes the row at the cursor's current position, then advances
// to the next admitted row.
func (u *BasicUpdater[R]) Delete(ctx context.Context, row *R) error {
	cur := u.Cursor()
	if cur == nil || cur.Key() == nil {
		return rowerr.ErrNoCurrentRow
	}
	if err := u.delete(ctx, row, cur); err != nil {
		return err
	}
	_, err := u.Step(ctx, nil)
	return err
}

// store implements spec §4.3's shared update path.
func (u *BasicUpdater[R]) store(ctx context.Context, row *R, cur storage.Cursor) error {
	eval := u.Evaluator()
	newKey, err := eval.UpdateKey(row, cur.Key())
	if err != nil {
		return err
	}
	newValue, err := eval.UpdateValue(row, cur.Value())
	if err != nil {
		return err
	}

	if newKey == nil || cur.CompareKeyTo(newKey) == 0 {
		return u.storeInPlace(ctx, row, cur, newValue)
	}
	return u.deleteInsert(ctx, row, cur, newKey, newValue)
}

func (u *BasicUpdater[R]) storeInPlace(ctx context.Context, row *R, cur storage.Cursor, newValue []byte) error {
	if u.trig == nil {
		return cur.Store(ctx, newValue)
	}
	for {
		mode, release := u.currentTrigger().Enter()
		switch mode {
		case trigger.ModeActive:
			err := u.currentTrigger().Writer().StoreP(ctx, u.txn, row, cur.Key(), cur.Value(), newValue)
			release()
			if err != nil {
				return err
			}
			return cur.Store(ctx, newValue)
		case trigger.ModeSkip:
			release()
			return cur.Store(ctx, newValue)
		default: // ModeDisabled
			release()
			if u.reloadTrigger != nil {
				u.trig = u.reloadTrigger()
			}
			if u.trig == nil {
				return cur.Store(ctx, newValue)
			}
		}
	}
}

func (u *BasicUpdater[R]) currentTrigger() *trigger.Trigger { return u.trig }

// deleteInsert implements spec §4.3's key-changing update path: inside a
// nested scope, insert the new row and then delete the old one, and record
// the new key in the skip set if it sorts ahead of the current scan position
// so evalRow rejects it when this scanner reaches it again.
func (u *BasicUpdater[R]) deleteInsert(ctx context.Context, row *R, cur storage.Cursor, newKey, newValue []byte) error {
	oldKey := append([]byte(nil), cur.Key()...)

	scope, err := u.txn.Enter(ctx)
	if err != nil {
		return err
	}

	if err := u.fireDeleteInsert(ctx, row, cur, newKey, newValue); err != nil {
		_ = scope.Exit()
		return err
	}

	if u.predLock != nil {
		u.predLock.RedoPredicateMode(u.txn)
		closer, err := u.predLock.OpenAcquireP(ctx, u.txn, row, newKey, newValue)
		if err != nil {
			_ = scope.Exit()
			return err
		}
		defer closer.Close()
	}

	ok, err := u.index.Insert(ctx, u.txn, newKey, newValue)
	if err != nil {
		_ = scope.Exit()
		return err
	}
	if !ok {
		_ = scope.Exit()
		return rowerr.ErrUniqueConstraint
	}

	if err := cur.Delete(ctx); err != nil {
		_ = scope.Exit()
		return err
	}
	if err := cur.Commit(ctx); err != nil {
		_ = scope.Exit()
		return err
	}

	added := false
	if u.advancedPast(oldKey, newKey) {
		added = u.skip.add(newKey)
	}

	if err := scope.Exit(); err != nil {
		if added {
			u.skip.remove(newKey)
		}
		return err
	}
	return nil
}

func (u *BasicUpdater[R]) fireDeleteInsert(ctx context.Context, row *R, cur storage.Cursor, newKey, newValue []byte) error {
	if u.trig == nil {
		return nil
	}
	for {
		mode, release := u.currentTrigger().Enter()
		switch mode {
		case trigger.ModeActive:
			w := u.currentTrigger().Writer()
			delErr := w.Delete(ctx, u.txn, cur.Key(), cur.Value())
			insErr := w.InsertP(ctx, u.txn, row, newKey, newValue)
			release()
			return errors.Join(delErr, insErr)
		case trigger.ModeSkip:
			release()
			return nil
		default: // ModeDisabled
			release()
			if u.reloadTrigger != nil {
				u.trig = u.reloadTrigger()
			}
			if u.trig == nil {
				return nil
			}
		}
	}
}

// advancedPast reports whether newKey sorts ahead of the cursor's current
// scan position in this updater's scan direction, i.e. whether the same
// scanner would otherwise observe it again later in this pass.
func (u *BasicUpdater[R]) advancedPast(curKey, newKey []byte) bool {
	c := bytes.Compare(newKey, curKey)
	if u.reverse {
		return c < 0
	}
	return c > 0
}

// delete removes the row at cur without inserting a replacement.
func (u *BasicUpdater[R]) delete(ctx context.Context, row *R, cur storage.Cursor) error {
	if u.trig == nil {
		return cur.Delete(ctx)
	}
	for {
		mode, release := u.currentTrigger().Enter()
		switch mode {
		case trigger.ModeActive:
			err := u.currentTrigger().Writer().Delete(ctx, u.txn, cur.Key(), cur.Value())
			release()
			if err != nil {
				return err
			}
			return cur.Delete(ctx)
		case trigger.ModeSkip:
			release()
			return cur.Delete(ctx)
		default: // ModeDisabled
			release()
			if u.reloadTrigger != nil {
				u.trig = u.reloadTrigger()
			}
			if u.trig == nil {
				return cur.Delete(ctx)
			}
		}
	}
}
