// Package storage declares the contracts this module consumes from the
// underlying ordered key/value storage engine: indexes, cursors,
// transactions, and row-predicate locks. Per spec §1, the storage engine
// itself is out of scope — this package only fixes the shape the rest of
// the core programs against, plus a small in-memory reference
// implementation (see the memstore subpackage) used to exercise that shape
// in tests.
package storage

import "context"

// LockResult mirrors the outcomes a storage transaction's lock manager can
// report for a lock attempt.
type LockResult int

const (
	LockUnowned LockResult = iota
	LockAcquired
	LockOwnedShared
	LockOwnedUpgradable
	LockOwnedExclusive
	LockInterrupted
	LockTimedOut
)

// Owned reports whether the result represents an already-held lock (as
// opposed to one freshly acquired by this call).
func (r LockResult) Owned() bool {
	switch r {
	case LockOwnedShared, LockOwnedUpgradable, LockOwnedExclusive:
		return true
	default:
		return false
	}
}

// Fresh reports whether the result represents a lock that was freshly
// acquired by this call and so should be released when the row it guards
// turns out not to be wanted.
func (r LockResult) Fresh() bool { return r == LockAcquired }

// LockMode selects a transaction's default locking discipline.
type LockMode int

const (
	LockModeUpgradable LockMode = iota
	LockModeRepeatable
	LockModeReadCommitted
	LockModeUnsafe
)

// Closer is returned by operations that open a scope which must later be
// released, such as a row-predicate lock acquisition.
type Closer interface {
	Close() error
}

// Scope represents a nested transaction scope opened by Transaction.Enter.
// Exiting it rolls back anything done since Enter unless Commit was called
// on the enclosing Transaction first.
type Scope interface {
	Exit() error
}

// Transaction is the unit of locking and atomicity that scanners and
// updaters operate within.
type Transaction interface {
	LockMode() LockMode
	SetLockMode(LockMode) LockMode // returns the previous mode

	// Unlock releases whatever lock this transaction holds on the most
	// recently examined row.
	Unlock()

	// UnlockCombine releases a pair of locks (e.g. secondary + primary)
	// atomically, so that rejecting a joined row never leaves one lock
	// held without the other.
	UnlockCombine()

	Attach(obj any)
	Attachment() any

	// Enter opens a nested transaction scope; Exit on the returned Scope
	// rolls back everything done since Enter unless Commit is called
	// first.
	Enter(ctx context.Context) (Scope, error)
	Commit(ctx context.Context) error

	// WasAcquired reports whether a LockResult represents a lock that
	// this transaction did not already hold before the call that
	// produced it.
	WasAcquired(LockResult) bool
}

// Cursor iterates over one index's key/value pairs within a transaction.
// A Cursor is not safe for concurrent use.
type Cursor interface {
	First(ctx context.Context) error
	Last(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Find(ctx context.Context, key []byte) error
	Skip(ctx context.Context, amount int64) error
	Random(ctx context.Context, lowKey, highKey []byte) error

	// Register associates this cursor with its transaction's lock scope
	// so that locks it acquires are released on transaction exit even if
	// the cursor itself leaks.
	Register() error

	// Key and Value return the cursor's current position, or nil if
	// unpositioned (end of range).
	Key() []byte
	Value() []byte

	CompareKeyTo(key []byte) int

	Store(ctx context.Context, value []byte) error
	Delete(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
	Commit(ctx context.Context) error

	Link(txn Transaction) Transaction
	Autoload(enabled bool)
	Reset()

	Close() error

	// LockResult reports the LockResult of the most recent positioning
	// operation (First/Last/Next/Previous/Find/Skip/Random).
	LockResult() LockResult
}

// Index is an ordered key/value index: the primary index of a table, or
// one of its secondary indexes.
type Index interface {
	ID() int64
	IsEmpty(ctx context.Context, txn Transaction) (bool, error)
	Load(ctx context.Context, txn Transaction, key []byte) ([]byte, error)
	Insert(ctx context.Context, txn Transaction, key, value []byte) (bool, error)
	NewCursor(ctx context.Context, txn Transaction) (Cursor, error)
}

// View names the subset of Index that read-only scan paths depend on; most
// callers simply use Index directly, but View documents the narrower
// contract a derived, read-only table needs.
type View interface {
	IsEmpty(ctx context.Context, txn Transaction) (bool, error)
	NewCursor(ctx context.Context, txn Transaction) (Cursor, error)
}

// RowPredicateLock prevents inserts of rows matching a predicate while a
// key-changing update is in flight for that row, per §4.3's delete-insert
// path.
type RowPredicateLock interface {
	OpenAcquireP(ctx context.Context, txn Transaction, row any, key, value []byte) (Closer, error)
	RedoPredicateMode(txn Transaction)
}
