package derive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtable/internal/storage"
	"rowtable/internal/storage/memstore"
)

func drainSource(t *testing.T, src Source[testRow]) []testRow {
	t.Helper()
	var got []testRow
	if row := src.Row(); row != nil {
		got = append(got, *row)
	}
	for {
		row, err := src.Step(context.Background(), nil)
		require.NoError(t, err)
		if row == nil {
			break
		}
		got = append(got, *row)
	}
	return got
}

func TestConcatScannerChainsSourcesInOrder(t *testing.T) {
	a := newSliceSource(testRow{Group: 1, Value: 1}, testRow{Group: 1, Value: 2})
	a.Init()
	b := newSliceSource(testRow{Group: 2, Value: 3})
	b.Init()
	c := newSliceSource()
	c.Init()

	s := NewConcatScanner[testRow]([]Source[testRow]{a, b, c})
	got := drainSource(t, s)
	assert.Equal(t, []testRow{
		{Group: 1, Value: 1},
		{Group: 1, Value: 2},
		{Group: 2, Value: 3},
	}, got)
	require.NoError(t, s.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.True(t, c.closed)
}

func TestConcatScannerEmptySourcesSkipped(t *testing.T) {
	a := newSliceSource()
	a.Init()
	b := newSliceSource(testRow{Group: 1, Value: 1})
	b.Init()

	s := NewConcatScanner[testRow]([]Source[testRow]{a, b})
	got := drainSource(t, s)
	assert.Equal(t, []testRow{{Group: 1, Value: 1}}, got)
}

type fakeDeleter struct {
	n   int64
	err error
}

func (f *fakeDeleter) DeleteAll(context.Context, storage.Transaction) (int64, error) {
	return f.n, f.err
}

func TestConcatQueryDeleteAllSumsCountsAndCommits(t *testing.T) {
	txn := memstore.NewTransaction()
	q := &ConcatQuery[testRow]{
		Name:    "test",
		Sources: []DeleteAller{&fakeDeleter{n: 2}, &fakeDeleter{n: 3}},
	}
	total, err := q.DeleteAll(context.Background(), txn)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestConcatQueryDeleteAllStopsOnError(t *testing.T) {
	txn := memstore.NewTransaction()
	boom := errors.New("boom")
	q := &ConcatQuery[testRow]{
		Name:    "test",
		Sources: []DeleteAller{&fakeDeleter{n: 2}, &fakeDeleter{err: boom}, &fakeDeleter{n: 100}},
	}
	_, err := q.DeleteAll(context.Background(), txn)
	assert.ErrorIs(t, err, boom)
}
