package mysqlstore

import (
	"bytes"
	"context"
	"sort"

	"rowtable/internal/rowerr"
	"rowtable/internal/storage"
)

// Cursor is mysqlstore's storage.Cursor: a position within a point-in-time
// snapshot of the index's rows, relocated by key across intervening
// writes the same way memstore.Cursor does (see that package's posKey
// doc) — the snapshot here is just fetched over the wire instead of
// copied from an in-memory slice.
type Cursor struct {
	ix       *Index
	txn      storage.Transaction
	snap     []kv
	pos      int
	posKey   []byte
	lockRes  storage.LockResult
	autoload bool
}

func (c *Cursor) takeSnapshot(ctx context.Context) error {
	if c.snap != nil {
		return nil
	}
	snap, err := c.ix.snapshot(ctx, c.txn)
	if err != nil {
		return err
	}
	c.snap = snap
	return nil
}

func (c *Cursor) syncPosKey() {
	if c.pos >= 0 && c.pos < len(c.snap) {
		c.posKey = append([]byte(nil), c.snap[c.pos].key...)
	} else {
		c.posKey = nil
	}
}

func (c *Cursor) locate(key []byte) int {
	return sort.Search(len(c.snap), func(i int) bool {
		return bytes.Compare(c.snap[i].key, key) >= 0
	})
}

func (c *Cursor) lockFor(key []byte) storage.LockResult {
	if key == nil {
		return storage.LockAcquired
	}
	t, ok := c.txn.(*Transaction)
	if !ok {
		return storage.LockAcquired
	}
	return t.acquireLock(key)
}

func (c *Cursor) updateLock() {
	if k := c.Key(); k != nil {
		c.lockRes = c.lockFor(k)
	} else {
		c.lockRes = storage.LockUnowned
	}
}

// First implements storage.Cursor.
func (c *Cursor) First(ctx context.Context) error {
	if err := c.takeSnapshot(ctx); err != nil {
		return err
	}
	c.pos = 0
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Last implements storage.Cursor.
func (c *Cursor) Last(ctx context.Context) error {
	if err := c.takeSnapshot(ctx); err != nil {
		return err
	}
	c.pos = len(c.snap) - 1
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Next implements storage.Cursor. If an intervening Store/Delete
// invalidated the snapshot, it refetches and relocates by posKey instead
// of blindly incrementing a stale index, exactly as memstore.Cursor.Next
// does.
func (c *Cursor) Next(ctx context.Context) error {
	if c.pos < 0 {
		return rowerr.ErrUnpositionedCursor
	}
	if c.snap == nil && c.posKey != nil {
		snap, err := c.ix.snapshot(ctx, c.txn)
		if err != nil {
			return err
		}
		c.snap = snap
		loc := c.locate(c.posKey)
		if loc < len(c.snap) && bytes.Equal(c.snap[loc].key, c.posKey) {
			c.pos = loc + 1
		} else {
			c.pos = loc
		}
	} else {
		if err := c.takeSnapshot(ctx); err != nil {
			return err
		}
		c.pos++
	}
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Previous implements storage.Cursor. See Next for the relocate-by-key
// behavior after an intervening mutation.
func (c *Cursor) Previous(ctx context.Context) error {
	if c.pos < 0 {
		return rowerr.ErrUnpositionedCursor
	}
	if c.snap == nil && c.posKey != nil {
		snap, err := c.ix.snapshot(ctx, c.txn)
		if err != nil {
			return err
		}
		c.snap = snap
		c.pos = c.locate(c.posKey) - 1
	} else {
		if err := c.takeSnapshot(ctx); err != nil {
			return err
		}
		c.pos--
	}
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Find implements storage.Cursor: positions at the first entry >= key.
func (c *Cursor) Find(ctx context.Context, key []byte) error {
	if err := c.takeSnapshot(ctx); err != nil {
		return err
	}
	c.pos = c.locate(key)
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Skip implements storage.Cursor.
func (c *Cursor) Skip(ctx context.Context, amount int64) error {
	if err := c.takeSnapshot(ctx); err != nil {
		return err
	}
	if c.pos < 0 {
		return rowerr.ErrUnpositionedCursor
	}
	c.pos += int(amount)
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Random implements storage.Cursor: deterministically picks the first
// entry within [lowKey, highKey) so test behavior stays reproducible,
// matching memstore.Cursor.Random.
func (c *Cursor) Random(ctx context.Context, lowKey, highKey []byte) error {
	if err := c.takeSnapshot(ctx); err != nil {
		return err
	}
	i := c.locate(lowKey)
	if i < len(c.snap) && highKey != nil && bytes.Compare(c.snap[i].key, highKey) >= 0 {
		i = len(c.snap)
	}
	c.pos = i
	c.syncPosKey()
	c.updateLock()
	return nil
}

// Register implements storage.Cursor. No extra bookkeeping is needed.
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
func (c *Cursor) CompareKeyTo(key []byte) int { return bytes.Compare(c.Key(), key) }

// Store implements storage.Cursor: writes through immediately and
// invalidates this cursor's snapshot so later positioning observes it.
func (c *Cursor) Store(ctx context.Context, value []byte) error {
	k := c.Key()
	if k == nil {
		return rowerr.ErrUnpositionedCursor
	}
	if err := c.ix.store(ctx, c.txn, k, value); err != nil {
		return err
	}
	c.snap = nil
	return nil
}

// Delete implements storage.Cursor.
func (c *Cursor) Delete(ctx context.Context) error {
	k := c.Key()
	if k == nil {
		return rowerr.ErrUnpositionedCursor
	}
	if err := c.ix.delete(ctx, c.txn, k); err != nil {
		return err
	}
	if t, ok := c.txn.(*Transaction); ok {
		t.releaseLock(k)
	}
	c.snap = nil
	return nil
}

// Exists implements storage.Cursor.
func (c *Cursor) Exists(context.Context) (bool, error) { return c.Key() != nil, nil }

// Commit implements storage.Cursor; writes are immediate, so this is a
// no-op that exists to satisfy the contract.
func (c *Cursor) Commit(context.Context) error { return nil }

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
