package rowtable

import (
	"context"
	"fmt"

	"rowtable/internal/launcher"
	"rowtable/internal/rowerr"
	"rowtable/internal/scan"
	"rowtable/internal/storage"
	"rowtable/internal/update"
)

// Query is spec §6's client-facing Query<R>: a named, argument-taking
// scan.Factory bound back to the table it was registered on. Scanner and
// updater construction go through a StoredQueryLauncher so that a
// transient ErrClosedIndex or ErrLockFailure while building either one
// retries once against a freshly-fetched table, per spec §5's narrow
// retry rule.
type Query[R any] struct {
	table   *Table[R]
	factory scan.Factory[R]
}

// ArgumentCount reports how many arguments this query's scan controller
// factory expects.
func (q *Query[R]) ArgumentCount() int { return q.factory.ArgumentCount() }

func (q *Query[R]) checkArgs(args []any) error {
	if n := q.factory.ArgumentCount(); len(args) != n {
		return fmt.Errorf("rowtable: query expects %d argument(s), got %d", n, len(args))
	}
	return nil
}

// launcherFor builds a StoredQueryLauncher that simply refetches q's
// table; since Table isn't itself reloaded from a catalog in this
// implementation, a retry re-validates it is still open rather than
// obtaining a genuinely new instance.
func (q *Query[R]) launcherFor() *launcher.StoredQueryLauncher[*Table[R]] {
	return launcher.New(func(context.Context) (*Table[R], error) {
		if q.table.IsClosed() {
			return nil, rowerr.ErrClosedIndex
		}
		return q.table, nil
	})
}

// NewScanner builds a Scanner restricted to this query's controller and
// arguments.
func (q *Query[R]) NewScanner(ctx context.Context, txn storage.Transaction, args ...any) (Scanner[R], error) {
	if err := q.checkArgs(args); err != nil {
		return nil, err
	}
	return launcher.Launch(ctx, q.launcherFor(), func(ctx context.Context, table *Table[R]) (Scanner[R], error) {
		if table.view == nil {
			return nil, fmt.Errorf("rowtable: table has no primary index attached; call WithPrimaryIndex first")
		}
		controller, err := q.factory.ScanController(args)
		if err != nil {
			return nil, err
		}
		s := scan.NewBasicScanner[R]("query", table.view, txn, controller, scan.Hooks[R]{})
		if err := s.Init(ctx, nil); err != nil {
			return nil, err
		}
		return s, nil
	})
}

// NewUpdater builds an Updater restricted to this query's controller and
// arguments.
func (q *Query[R]) NewUpdater(ctx context.Context, txn storage.Transaction, args ...any) (Updater[R], error) {
	if err := q.checkArgs(args); err != nil {
		return nil, err
	}
	return launcher.Launch(ctx, q.launcherFor(), func(ctx context.Context, table *Table[R]) (Updater[R], error) {
		if table.index == nil {
			return nil, fmt.Errorf("rowtable: table has no primary index attached; call WithPrimaryIndex first")
		}
		controller, err := q.factory.ScanController(args)
		if err != nil {
			return nil, err
		}
		cfg := update.Config[R]{
			Name:          "query",
			Index:         table.index,
			View:          table.view,
			Txn:           txn,
			Controller:    controller,
			PredicateLock: table.predicateLock,
		}
		if table.trig != nil {
			cfg.Trigger = table.trig()
			cfg.ReloadTrigger = table.trig
		}
		u := update.NewBasicUpdater[R](cfg)
		if err := u.Init(ctx, nil); err != nil {
			return nil, err
		}
		return u, nil
	})
}

// AnyRows reports whether this query's scan yields at least one row.
func (q *Query[R]) AnyRows(ctx context.Context, txn storage.Transaction, args ...any) (bool, error) {
	s, err := q.NewScanner(ctx, txn, args...)
	if err != nil {
		return false, err
	}
	defer s.Close()
	return s.Row() != nil, nil
}

// DeleteAll deletes every row this query's scan admits, returning the
// number of rows deleted.
func (q *Query[R]) DeleteAll(ctx context.Context, txn storage.Transaction, args ...any) (int, error) {
	u, err := q.NewUpdater(ctx, txn, args...)
	if err != nil {
		return 0, err
	}
	defer u.Close()

	n := 0
	row := u.Row()
	for row != nil {
		// Delete removes the row at the cursor's current position and
		// advances to the next admitted row itself; no separate Step.
		if err := u.Delete(ctx, row); err != nil {
			return n, err
		}
		n++
		row = u.Row()
	}
	return n, nil
}

// ScannerPlan renders the factory's plan description for args.
func (q *Query[R]) ScannerPlan(args ...any) (string, error) { return q.factory.Plan(args) }

// UpdaterPlan renders the factory's plan description for args; scanner and
// updater share one controller-construction plan in this implementation.
func (q *Query[R]) UpdaterPlan(args ...any) (string, error) { return q.factory.Plan(args) }
