package trigger

import "context"

// SecondaryState mirrors the catalog's per-secondary-index state letter,
// per spec §4.8 step 2.
type SecondaryState byte

const (
	StateLive      SecondaryState = 'L'
	StateBackfill  SecondaryState = 'B'
	StateDeleting  SecondaryState = 'D'
)

// Descriptor identifies one secondary index as reported by the catalog.
type Descriptor struct {
	ID    int64
	State SecondaryState
}

// SecondaryInfo is the materialized per-descriptor state TableManager
// tracks, per spec §4.8 step 1 ("materialise a SecondaryInfo, cached
// weakly keyed by D"). Go has no weak references (per spec §9); here the
// cache is simply the live map below, evicted explicitly the moment a
// descriptor drops out of the catalog's live set rather than left for the
// GC to notice.
type SecondaryInfo struct {
	Descriptor Descriptor
	Trigger    *Trigger
}

// Backfiller starts backfilling one descriptor's secondary index.
type Backfiller interface {
	Backfill(ctx context.Context, d Descriptor) error
}

// ClearCacheTask is returned by TableManager.Update for the caller to run
// strictly after the enclosing transaction commits, per spec §4.8 step 3
// ("running it before may deadlock against the txn lock"). A nil return
// means no cache invalidation is needed.
type ClearCacheTask func()

// TableManager reconciles the set of installed triggers with the live
// secondary-index set, per spec §4.8.
type TableManager struct {
	infos     map[int64]*SecondaryInfo
	pool      *Pool
	newWriter func(Descriptor) Writer
	onClear   func()
}

// NewTableManager builds a TableManager. newWriter produces the concrete
// Writer a live descriptor's Trigger should dispatch to; onClear, if
// non-nil, is invoked by the ClearCacheTask Update returns.
func NewTableManager(pool *Pool, newWriter func(Descriptor) Writer, onClear func()) *TableManager {
	return &TableManager{
		infos:     make(map[int64]*SecondaryInfo),
		pool:      pool,
		newWriter: newWriter,
		onClear:   onClear,
	}
}

// Update reconciles descriptors (the catalog's current view of every
// secondary index on this table) against the triggers already installed:
//  1. Indexes in StateDeleting are dropped (their Trigger disabled).
//  2. Indexes in StateBackfill spawn a backfill worker, if not already
//     present, and get a Trigger so concurrent writes are captured.
//  3. Live indexes get a Trigger if they don't already have one.
//
// Any descriptor previously tracked but absent from this call is treated
// as dropped. Update returns a non-nil ClearCacheTask whenever the
// installed trigger set changed; the caller must run it only after the
// enclosing transaction commits.
func (m *TableManager) Update(ctx context.Context, descriptors []Descriptor, backfill Backfiller) (ClearCacheTask, error) {
	live := make(map[int64]bool, len(descriptors))
	changed := false

	for _, d := range descriptors {
		live[d.ID] = true
		switch d.State {
		case StateDeleting:
			if info, ok := m.infos[d.ID]; ok {
				info.Trigger.Disable()
				delete(m.infos, d.ID)
				changed = true
			}
		case StateBackfill:
			if _, ok := m.infos[d.ID]; !ok {
				info := &SecondaryInfo{Descriptor: d, Trigger: New(m.newWriter(d))}
				m.infos[d.ID] = info
				changed = true
				if backfill != nil && m.pool != nil {
					dCopy := d
					m.pool.Submit(func() { _ = backfill.Backfill(ctx, dCopy) })
				}
			}
		default: // live
			if _, ok := m.infos[d.ID]; !ok {
				m.infos[d.ID] = &SecondaryInfo{Descriptor: d, Trigger: New(m.newWriter(d))}
				changed = true
			}
		}
	}

	for id, info := range m.infos {
		if live[id] {
			continue
		}
		info.Trigger.Disable()
		delete(m.infos, id)
		changed = true
	}

	if !changed {
		return nil, nil
	}
	return func() {
		if m.onClear != nil {
			m.onClear()
		}
	}, nil
}

// Trigger returns the installed Trigger for descriptor id, or nil if none
// is installed.
func (m *TableManager) Trigger(id int64) *Trigger {
	if info, ok := m.infos[id]; ok {
		return info.Trigger
	}
	return nil
}
