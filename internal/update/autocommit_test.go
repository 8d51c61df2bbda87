package update

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtable/internal/storage/memstore"
)

func TestAutoCommitUpdaterCommitsAfterEveryStore(t *testing.T) {
	ix := memstore.New(1)
	fillRows(ix, map[rune]string{1: "a", 2: "b"})
	txn := memstore.NewTransaction()
	ctx := context.Background()

	u, err := NewAutoCommitUpdater(ctx, Config[testRow]{
		Name:       "test",
		Index:      ix,
		Txn:        txn,
		Controller: fullController(),
	})
	require.NoError(t, err)
	require.NoError(t, u.Init(ctx, nil))

	require.NoError(t, u.Update(ctx, &testRow{K: 1, V: "z"}))
	v, err := ix.Load(ctx, txn, encKey(1))
	require.NoError(t, err)
	assert.Equal(t, "z", decVal(v))

	require.NoError(t, u.Close())
	require.NoError(t, u.Close())
}
