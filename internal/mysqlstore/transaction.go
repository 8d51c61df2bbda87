package mysqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"rowtable/internal/storage"
)

// Transaction is mysqlstore's storage.Transaction. It wraps a *sql.Tx so
// cursor writes participate in a real MySQL transaction, while tracking
// per-key lock ownership itself the way memstore.Transaction does —
// MySQL's own row locks are a property of the *sql.Tx, not something this
// adapter layer re-derives.
type Transaction struct {
	mu         sync.Mutex
	tx         *sql.Tx
	mode       storage.LockMode
	attachment any
	scopes     int
	held       map[string]bool
}

// Begin opens a new MySQL transaction with the default lock mode.
func Begin(ctx context.Context, db *sql.DB) (*Transaction, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mysqlstore: begin transaction: %w", err)
	}
	return &Transaction{tx: tx, mode: storage.LockModeUpgradable, held: map[string]bool{}}, nil
}

func (t *Transaction) acquireLock(key []byte) storage.LockResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := string(key)
	if t.held[k] {
		return storage.LockOwnedShared
	}
	t.held[k] = true
	return storage.LockAcquired
}

func (t *Transaction) releaseLock(key []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, string(key))
}

// LockMode implements storage.Transaction.
func (t *Transaction) LockMode() storage.LockMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// SetLockMode implements storage.Transaction.
func (t *Transaction) SetLockMode(m storage.LockMode) storage.LockMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.mode
	t.mode = m
	return prev
}

// Unlock implements storage.Transaction. Per-row release happens through
// Cursor.Delete (which calls releaseLock); there is no single "most
// recently examined row" slot tracked here, matching memstore's
// documented no-op.
func (t *Transaction) Unlock() {}

// UnlockCombine implements storage.Transaction.
func (t *Transaction) UnlockCombine() {}

// Attach implements storage.Transaction.
func (t *Transaction) Attach(obj any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attachment = obj
}

// Attachment implements storage.Transaction.
func (t *Transaction) Attachment() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attachment
}

type txnScope struct{ t *Transaction }

func (s *txnScope) Exit() error {
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	if s.t.scopes == 0 {
		return fmt.Errorf("mysqlstore: unbalanced Exit")
	}
	s.t.scopes--
	return nil
}

// Enter implements storage.Transaction. Nested scopes share the same
// underlying *sql.Tx; rollback-on-abandon is the caller's responsibility
// via Commit (or not), matching the one-physical-transaction-per-Begin
// model real MySQL gives us (there is no true nested-transaction
// primitive to lean on here).
func (t *Transaction) Enter(context.Context) (storage.Scope, error) {
	t.mu.Lock()
	t.scopes++
	t.mu.Unlock()
	return &txnScope{t: t}, nil
}

// Commit implements storage.Transaction: commits the underlying MySQL
// transaction.
func (t *Transaction) Commit(context.Context) error {
	return t.tx.Commit()
}

// Rollback aborts the underlying MySQL transaction. It is not part of
// storage.Transaction; callers that abandon a Transaction without
// Commit should call it directly to release MySQL's own locks promptly.
func (t *Transaction) Rollback() error {
	return t.tx.Rollback()
}

// WasAcquired implements storage.Transaction.
func (t *Transaction) WasAcquired(r storage.LockResult) bool { return r.Fresh() }

var _ storage.Transaction = (*Transaction)(nil)
