package update

import "bytes"

// TriggerIndexAccessor is attached to a transaction by JoinedUpdater so
// that trigger-side writers mutating the very secondary index being
// scanned can coordinate with the live scan, per spec §4.3's
// JoinedUpdater row:
//   - NoteSecondaryWrite records a trigger-written secondary key in the
//     scan's skip set when it sorts ahead of the cursor, so the scan
//     never re-observes it.
//   - ShortCircuitDelete reports when the trigger's own secondary delete
//     would be redundant with the live cursor already sitting on that
//     key.
type TriggerIndexAccessor struct {
	secondaryKey func() []byte
	skip         *skipSet
	reverse      bool
}

// NoteSecondaryWrite implements the skip-ahead half of the accessor.
func (a *TriggerIndexAccessor) NoteSecondaryWrite(newSecondaryKey []byte) {
	if a.skip == nil {
		return
	}
	cur := a.secondaryKey()
	if cur == nil || newSecondaryKey == nil {
		return
	}
	c := bytes.Compare(newSecondaryKey, cur)
	if a.reverse {
		c = -c
	}
	if c > 0 {
		a.skip.add(newSecondaryKey)
	}
}

// ShortCircuitDelete implements the delete half of the accessor.
func (a *TriggerIndexAccessor) ShortCircuitDelete(deletedKey []byte) bool {
	cur := a.secondaryKey()
	return cur != nil && bytes.Equal(cur, deletedKey)
}

// JoinedUpdater iterates a secondary index (Config.View) but mutates
// through the primary index (Config.Index), per spec §4.3. It attaches a
// *TriggerIndexAccessor to the transaction so the trigger that fans
// primary writes out to this same secondary can coordinate with the
// scan in progress.
type JoinedUpdater[R any] struct {
	*BasicUpdater[R]
	Accessor *TriggerIndexAccessor
}

// NewJoinedUpdater builds a JoinedUpdater. cfg.View must be the secondary
// index being scanned and cfg.Index the primary index mutations apply to.
func NewJoinedUpdater[R any](cfg Config[R]) *JoinedUpdater[R] {
	u := NewBasicUpdater(cfg)
	accessor := &TriggerIndexAccessor{
		secondaryKey: func() []byte {
			if cur := u.Cursor(); cur != nil {
				return cur.Key()
			}
			return nil
		},
		skip:    u.skip,
		reverse: u.reverse,
	}
	if cfg.Txn != nil {
		cfg.Txn.Attach(accessor)
	}
	return &JoinedUpdater[R]{BasicUpdater: u, Accessor: accessor}
}
