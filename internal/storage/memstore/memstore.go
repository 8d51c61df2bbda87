// Package memstore is a small in-memory reference implementation of the
// storage.Index/Cursor/Transaction contracts, used by this module's own
// tests. Spec §1 places the real ordered key/value storage engine out of
// scope ("external collaborator referenced only by its contract"); this
// package exists purely so the scan/update/derive/trigger packages have
// something real to run against without a live storage engine dependency.
// It intentionally does not attempt MVCC, durability, or a real lock
// manager — just enough bookkeeping to exercise the contracts' shapes.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"rowtable/internal/rowerr"
	"rowtable/internal/storage"
)

type entry struct {
	key, value []byte
}

// Index is a sorted in-memory key/value index.
type Index struct {
	mu      sync.Mutex
	id      int64
	entries []entry
	closed  bool
}

// New returns an empty index identified by id.
func New(id int64) *Index {
	return &Index{id: id}
}

func (ix *Index) find(key []byte) (int, bool) {
	i := sort.Search(len(ix.entries), func(i int) bool {
		return bytes.Compare(ix.entries[i].key, key) >= 0
	})
	return i, i < len(ix.entries) && bytes.Equal(ix.entries[i].key, key)
}

// ID implements storage.Index.
func (ix *Index) ID() int64 { return ix.id }

// Close marks the index closed; subsequent operations fail with
// rowerr.ErrClosedIndex.
func (ix *Index) Close() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.closed = true
}

// IsEmpty implements storage.Index.
func (ix *Index) IsEmpty(_ context.Context, _ storage.Transaction) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return false, rowerr.ErrClosedIndex
	}
	return len(ix.entries) == 0, nil
}

// Load implements storage.Index.
func (ix *Index) Load(_ context.Context, _ storage.Transaction, key []byte) ([]byte, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return nil, rowerr.ErrClosedIndex
	}
	i, ok := ix.find(key)
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), ix.entries[i].value...), nil
}

// Insert implements storage.Index: it returns (false, nil) without error
// when the key already exists, matching the source's "duplicate key"
// signal that callers turn into rowerr.ErrUniqueConstraint when they need
// to.
func (ix *Index) Insert(_ context.Context, _ storage.Transaction, key, value []byte) (bool, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return false, rowerr.ErrClosedIndex
	}
	i, ok := ix.find(key)
	if ok {
		return false, nil
	}
	cp := entry{key: append([]byte(nil), key...), value: append([]byte(nil), value...)}
	ix.entries = append(ix.entries, entry{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = cp
	return true, nil
}

func (ix *Index) store(key, value []byte) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return rowerr.ErrClosedIndex
	}
	i, ok := ix.find(key)
	if ok {
		ix.entries[i].value = append([]byte(nil), value...)
		return nil
	}
	cp := entry{key: append([]byte(nil), key...), value: append([]byte(nil), value...)}
	ix.entries = append(ix.entries, entry{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = cp
	return nil
}

func (ix *Index) delete(key []byte) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return rowerr.ErrClosedIndex
	}
	i, ok := ix.find(key)
	if !ok {
		return nil
	}
	ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
	return nil
}

func (ix *Index) snapshot() []entry {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	cp := make([]entry, len(ix.entries))
	copy(cp, ix.entries)
	return cp
}

// NewCursor implements storage.Index.
func (ix *Index) NewCursor(_ context.Context, txn storage.Transaction) (storage.Cursor, error) {
	ix.mu.Lock()
	closed := ix.closed
	ix.mu.Unlock()
	if closed {
		return nil, rowerr.ErrClosedIndex
	}
	return &Cursor{ix: ix, txn: txn, pos: -1, autoload: true}, nil
}

// Cursor is memstore's storage.Cursor implementation: a position (index
// into a point-in-time snapshot of the index) plus the last lock result
// observed, tracked per (transaction, key) so repeated visits within one
// transaction report "already owned" rather than "freshly acquired".
type Cursor struct {
	ix       *Index
	txn      storage.Transaction
	snap     []entry
	pos      int    // -1 = unpositioned before first snapshot taken
	posKey   []byte // key at pos, kept across snapshot invalidation so Next/Previous can relocate after a Store/Delete changes the set
	lockRes  storage.LockResult
	autoload bool
	reset    bool
}

func (c *Cursor) takeSnapshot() {
	if c.snap == nil {
		c.snap = c.ix.snapshot()
	}
}

// syncPosKey records the key at the current position so a later Next or
// Previous can relocate after an intervening Store/Delete invalidates the
// snapshot and shifts array indices out from under a bare pos++/pos--.
func (c *Cursor) syncPosKey() {
	if c.pos >= 0 && c.pos < len(c.snap) {
		c.posKey = append([]byte(nil), c.snap[c.pos].key...)
	} else {
		c.posKey = nil
	}
}

// locate returns the index of the first snapshot entry >= key.
func (c *Cursor) locate(key []byte) int {
	return sort.Search(len(c.snap), func(i int) bool {
		return bytes.Compare(c.snap[i].key, key) >= 0
	})
}

// lockFor tracks per-key lock ownership in the owning *Transaction's own
// locks field, kept separate from its public Attach/Attachment slot
// (storage.Transaction's Attach is for caller use, e.g. update package's
// TriggerIndexAccessor — memstore must not clobber it with its own
// bookkeeping).
func (c *Cursor) lockFor(key []byte) storage.LockResult {
	if key == nil {
		return storage.LockAcquired
	}
	t, ok := c.txn.(*Transaction)
	if !ok {
		return storage.LockAcquired
	}
	t.mu.Lock()
	if t.locks == nil {
		t.locks = &lockTracker{held: map[string]bool{}}
	}
	lt := t.locks
	t.mu.Unlock()
	return lt.acquire(key)
}

type lockTracker struct {
	held map[string]bool
}

func (lt *lockTracker) acquire(key []byte) storage.LockResult {
	k := string(key)
	if lt.held[k] {
		return storage.LockOwnedShared
	}
	lt.held[k] = true
	return storage.LockAcquired
}

func (lt *lockTracker) release(key []byte) {
	delete(lt.held, string(key))
}

// First implements storage.Cursor.
func (c *Cursor) First(_ context.Context) error {
	c.takeSnapshot()
	c.pos = 0
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Last implements storage.Cursor.
func (c *Cursor) Last(_ context.Context) error {
	c.takeSnapshot()
	c.pos = len(c.snap) - 1
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Next implements storage.Cursor. If an intervening Store/Delete
// invalidated the snapshot, it relocates by posKey instead of blindly
// incrementing a now-stale array index.
func (c *Cursor) Next(_ context.Context) error {
	if c.pos < 0 {
		return rowerr.ErrUnpositionedCursor
	}
	if c.snap == nil && c.posKey != nil {
		c.snap = c.ix.snapshot()
		loc := c.locate(c.posKey)
		if loc < len(c.snap) && bytes.Equal(c.snap[loc].key, c.posKey) {
			c.pos = loc + 1
		} else {
			c.pos = loc
		}
	} else {
		c.takeSnapshot()
		c.pos++
	}
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Previous implements storage.Cursor. See Next for the relocate-by-key
// behavior after an intervening mutation.
func (c *Cursor) Previous(_ context.Context) error {
	if c.pos < 0 {
		return rowerr.ErrUnpositionedCursor
	}
	if c.snap == nil && c.posKey != nil {
		c.snap = c.ix.snapshot()
		c.pos = c.locate(c.posKey) - 1
	} else {
		c.takeSnapshot()
		c.pos--
	}
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Find implements storage.Cursor: positions at the first entry >= key.
func (c *Cursor) Find(_ context.Context, key []byte) error {
	c.takeSnapshot()
	c.pos = c.locate(key)
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Skip implements storage.Cursor.
func (c *Cursor) Skip(_ context.Context, amount int64) error {
	c.takeSnapshot()
	if c.pos < 0 {
		return rowerr.ErrUnpositionedCursor
	}
	c.pos += int(amount)
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Random implements storage.Cursor: deterministically picks the first
// entry within [lowKey, highKey) to keep test behavior reproducible.
func (c *Cursor) Random(_ context.Context, lowKey, highKey []byte) error {
	c.takeSnapshot()
	i := c.locate(lowKey)
	if i < len(c.snap) && highKey != nil && bytes.Compare(c.snap[i].key, highKey) >= 0 {
		i = len(c.snap)
	}
	c.pos = i
	c.syncPosKey()
	c.updateLock()
	return nil
}

func (c *Cursor) updateLock() {
	if k := c.Key(); k != nil {
		c.lockRes = c.lockFor(k)
	} else {
		c.lockRes = storage.LockUnowned
	}
}

// Register implements storage.Cursor. memstore tracks nothing extra.
func (c *Cursor) Register() error { return nil }

// Key implements storage.Cursor.
func (c *Cursor) Key() []byte {
	if c.snap == nil || c.pos < 0 || c.pos >= len(c.snap) {
		return nil
	}
	return c.snap[c.pos].key
}

// Value implements storage.Cursor.
func (c *Cursor) Value() []byte {
	if c.snap == nil || c.pos < 0 || c.pos >= len(c.snap) {
		return nil
	}
	return c.snap[c.pos].value
}

// CompareKeyTo implements storage.Cursor.
func (c *Cursor) CompareKeyTo(key []byte) int {
	return bytes.Compare(c.Key(), key)
}

// Store implements storage.Cursor: writes through to the backing index
// immediately (memstore has no deferred-commit semantics) and refreshes
// this cursor's snapshot so later positioning sees the write.
func (c *Cursor) Store(_ context.Context, value []byte) error {
	k := c.Key()
	if k == nil {
		return rowerr.ErrUnpositionedCursor
	}
	if err := c.ix.store(k, value); err != nil {
		return err
	}
	c.snap = nil
	return nil
}

// Delete implements storage.Cursor.
func (c *Cursor) Delete(_ context.Context) error {
	k := c.Key()
	if k == nil {
		return rowerr.ErrUnpositionedCursor
	}
	if err := c.ix.delete(k); err != nil {
		return err
	}
	if t, ok := c.txn.(*Transaction); ok && t.locks != nil {
		t.locks.release(k)
	}
	c.snap = nil
	return nil
}

// Exists implements storage.Cursor.
func (c *Cursor) Exists(_ context.Context) (bool, error) {
	return c.Key() != nil, nil
}

// Commit implements storage.Cursor; memstore writes are immediate, so this
// is a no-op that exists to satisfy the contract.
func (c *Cursor) Commit(_ context.Context) error { return nil }

// Link implements storage.Cursor.
func (c *Cursor) Link(txn storage.Transaction) storage.Transaction {
	prev := c.txn
	c.txn = txn
	c.snap = nil
	return prev
}

// Autoload implements storage.Cursor.
func (c *Cursor) Autoload(enabled bool) { c.autoload = enabled }

// Reset implements storage.Cursor.
func (c *Cursor) Reset() {
	c.pos = -1
	c.snap = nil
	c.lockRes = storage.LockUnowned
}

// Close implements storage.Cursor.
func (c *Cursor) Close() error {
	c.Reset()
	return nil
}

// LockResult implements storage.Cursor.
func (c *Cursor) LockResult() storage.LockResult { return c.lockRes }

var _ storage.Cursor = (*Cursor)(nil)
var _ storage.Index = (*Index)(nil)

// Transaction is memstore's storage.Transaction implementation.
type Transaction struct {
	mu         sync.Mutex
	mode       storage.LockMode
	attachment any
	scopes     int
	locks      *lockTracker // internal bookkeeping, distinct from attachment
}

// NewTransaction returns a fresh transaction with the default lock mode.
func NewTransaction() *Transaction {
	return &Transaction{mode: storage.LockModeUpgradable}
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

// Unlock implements storage.Transaction. memstore tracks locks per key via
// lockTracker and doesn't model "the most recently examined row" as a
// single slot, so this is a documented no-op; callers that need per-row
// release use Cursor interactions instead.
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
		return fmt.Errorf("memstore: unbalanced Exit")
	}
	s.t.scopes--
	return nil
}

// Enter implements storage.Transaction.
func (t *Transaction) Enter(_ context.Context) (storage.Scope, error) {
	t.mu.Lock()
	t.scopes++
	t.mu.Unlock()
	return &txnScope{t: t}, nil
}

// Commit implements storage.Transaction; memstore has no deferred writes
// to flush, so this is a no-op that always returns nil.
func (t *Transaction) Commit(_ context.Context) error { return nil }

// WasAcquired implements storage.Transaction.
func (t *Transaction) WasAcquired(r storage.LockResult) bool { return r.Fresh() }

var _ storage.Transaction = (*Transaction)(nil)
