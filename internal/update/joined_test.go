package update

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtable/internal/storage/memstore"
)

func TestJoinedUpdaterAttachesAccessor(t *testing.T) {
	ix := memstore.New(1)
	fillRows(ix, map[rune]string{1: "a", 2: "b"})
	txn := memstore.NewTransaction()
	ctx := context.Background()

	u := NewJoinedUpdater(Config[testRow]{
		Name:       "test",
		Index:      ix,
		View:       ix,
		Txn:        txn,
		Controller: fullController(),
	})
	require.NoError(t, u.Init(ctx, nil))

	accessor, ok := txn.Attachment().(*TriggerIndexAccessor)
	require.True(t, ok)
	assert.Same(t, u.Accessor, accessor)
}

func TestTriggerIndexAccessorShortCircuitDelete(t *testing.T) {
	cur := encKey(5)
	a := &TriggerIndexAccessor{secondaryKey: func() []byte { return cur }}
	assert.True(t, a.ShortCircuitDelete(encKey(5)))
	assert.False(t, a.ShortCircuitDelete(encKey(6)))
}

func TestTriggerIndexAccessorNoteSecondaryWriteSkipsAheadKeys(t *testing.T) {
	skip := &skipSet{}
	a := &TriggerIndexAccessor{
		secondaryKey: func() []byte { return encKey(3) },
		skip:         skip,
	}
	a.NoteSecondaryWrite(encKey(7))
	assert.True(t, skip.contains(encKey(7)))

	a.NoteSecondaryWrite(encKey(1))
	assert.False(t, skip.contains(encKey(1)))
}
