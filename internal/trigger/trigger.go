// Package trigger keeps secondary indexes consistent with a table's
// primary index across mutations, per spec §4.8. A Trigger is a shared
// latch guarding a mode: ACTIVE writers fan a primary-index mutation out
// to every live secondary; SKIP writers bypass that fan-out (used while a
// secondary is mid-backfill); DISABLED marks a trigger that has been
// superseded and is being fenced out before its replacement takes over.
package trigger

import (
	"context"
	"sync"

	"rowtable/internal/rowerr"
)

// Mode selects how a Trigger reacts to a primary-index mutation.
type Mode int32

const (
	// ModeActive fans every mutation out to the live secondary indexes.
	ModeActive Mode = iota
	// ModeSkip bypasses secondary fan-out (a secondary is backfilling).
	ModeSkip
	// ModeDisabled marks a trigger being replaced; readers that observe
	// it must re-fetch the table's current trigger and retry.
	ModeDisabled
)

// Writer is implemented by the subclass that knows how to mutate a
// table's secondary indexes; the base Trigger rejects every operation
// with rowerr.ErrUnsupported so a table with no secondaries can still
// install a Trigger value without a nil check at every call site.
type Writer interface {
	Store(ctx context.Context, txn any, key, oldValue, newValue []byte) error
	StoreP(ctx context.Context, txn any, row any, key, oldValue, newValue []byte) error
	Insert(ctx context.Context, txn any, key, value []byte) error
	InsertP(ctx context.Context, txn any, row any, key, value []byte) error
	Delete(ctx context.Context, txn any, key, oldValue []byte) error
}

// Base is embedded by concrete trigger implementations; its Writer
// methods reject everything, so an implementation only needs to
// override what it actually supports.
type Base struct{}

func (Base) Store(context.Context, any, []byte, []byte, []byte) error       { return rowerr.ErrUnsupported }
func (Base) StoreP(context.Context, any, any, []byte, []byte, []byte) error { return rowerr.ErrUnsupported }
func (Base) Insert(context.Context, any, []byte, []byte) error              { return rowerr.ErrUnsupported }
func (Base) InsertP(context.Context, any, any, []byte, []byte) error        { return rowerr.ErrUnsupported }
func (Base) Delete(context.Context, any, []byte, []byte) error              { return rowerr.ErrUnsupported }

// Trigger pairs a Writer with a shared many-readers/one-writer latch and
// a mode. Readers (ordinary mutation paths) take the latch in shared
// mode for the duration of one operation; installing a replacement
// trigger takes it exclusively just long enough to fence in-flight
// readers out, per spec §4.8.
type Trigger struct {
	mu   sync.RWMutex
	mode Mode
	w    Writer
}

// New wraps w in an active Trigger.
func New(w Writer) *Trigger {
	return &Trigger{mode: ModeActive, w: w}
}

// Mode reports the current mode, taking the shared latch just long enough
// to read it. Callers that act on the mode use Enter instead, which keeps
// the latch held until they release it.
func (t *Trigger) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// Enter acquires the trigger's shared latch for the duration of one
// operation and returns the mode observed at that point, plus a release
// function the caller must call exactly once.
func (t *Trigger) Enter() (Mode, func()) {
	t.mu.RLock()
	mode := t.mode
	return mode, t.mu.RUnlock
}

// Writer exposes the underlying Writer for callers that already hold
// the latch via Enter.
func (t *Trigger) Writer() Writer { return t.w }

// Disable fences this trigger out: it marks it DISABLED, then acquires
// and releases the exclusive latch so every shared holder at the time of
// the call has released before Disable returns. Any reader that re-enters
// after this point observes ModeDisabled and must fetch the table's
// current trigger instead.
func (t *Trigger) Disable() {
	t.mu.Lock()
	t.mode = ModeDisabled
	t.mu.Unlock()
}
