package derive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtable/internal/rowerr"
	"rowtable/internal/storage"
)

// fakeTable is a minimal Table[testRow] stub for exercising
// MultiSourceTable/ConcatTable composition without a real storage index.
type fakeTable struct {
	empty   bool
	anyRows bool
	rows    []testRow
}

func (t *fakeTable) NewRow() *testRow                    { return &testRow{} }
func (t *fakeTable) CloneRow(row *testRow) *testRow      { cp := *row; return &cp }
func (t *fakeTable) CopyRow(dst, src *testRow)           { *dst = *src }
func (t *fakeTable) IsSet(*testRow) bool                 { return true }
func (t *fakeTable) ForEach(*testRow, func(int, any))    {}
func (t *fakeTable) UnsetRow(*testRow)                   {}
func (t *fakeTable) CleanRow(*testRow)                   {}

func (t *fakeTable) TryLoad(context.Context, storage.Transaction, []byte) (*testRow, bool, error) {
	return nil, false, rowerr.ErrViewConstraint
}

func (t *fakeTable) Exists(context.Context, storage.Transaction, []byte) (bool, error) {
	return false, rowerr.ErrViewConstraint
}

func (t *fakeTable) IsEmpty(context.Context, storage.Transaction) (bool, error) {
	return t.empty, nil
}

func (t *fakeTable) AnyRows(context.Context, storage.Transaction) (bool, error) {
	return t.anyRows, nil
}

func (t *fakeTable) NewScanner(context.Context, storage.Transaction) (Source[testRow], error) {
	s := newSliceSource(t.rows...)
	s.Init()
	return s, nil
}

func (t *fakeTable) NewUpdater(context.Context, storage.Transaction) (any, error) {
	return nil, rowerr.ErrUnsupported
}

func TestMultiSourceTableAnyRowsShortCircuits(t *testing.T) {
	mt := &MultiSourceTable[testRow]{Sources: []Table[testRow]{
		&fakeTable{anyRows: false},
		&fakeTable{anyRows: true},
	}}
	ok, err := mt.AnyRows(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMultiSourceTableIsEmptyRequiresAllSourcesEmpty(t *testing.T) {
	mt := &MultiSourceTable[testRow]{Sources: []Table[testRow]{
		&fakeTable{empty: true},
		&fakeTable{empty: false},
	}}
	ok, err := mt.IsEmpty(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMultiSourceTableTryLoadIsViewConstrained(t *testing.T) {
	mt := &MultiSourceTable[testRow]{Sources: []Table[testRow]{&fakeTable{}}}
	_, ok, err := mt.TryLoad(context.Background(), nil, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, rowerr.ErrViewConstraint)
}

func TestConcatTableFlattensNestedConcatTables(t *testing.T) {
	a := &fakeTable{rows: []testRow{{Value: 1}}}
	b := &fakeTable{rows: []testRow{{Value: 2}}}
	inner := NewConcatTable[testRow]([]Table[testRow]{a, b})

	c := &fakeTable{rows: []testRow{{Value: 3}}}
	outer := NewConcatTable[testRow]([]Table[testRow]{inner, c})

	require.Len(t, outer.Sources, 3)
	assert.Same(t, a, outer.Sources[0])
	assert.Same(t, b, outer.Sources[1])
	assert.Same(t, c, outer.Sources[2])
}

func TestConcatTableNewScannerChainsSources(t *testing.T) {
	a := &fakeTable{rows: []testRow{{Value: 1}}}
	b := &fakeTable{rows: []testRow{{Value: 2}}}
	ct := NewConcatTable[testRow]([]Table[testRow]{a, b})

	scanner, err := ct.NewScanner(context.Background(), nil)
	require.NoError(t, err)
	got := drainSource(t, scanner)
	assert.Equal(t, []testRow{{Value: 1}, {Value: 2}}, got)
}

func TestIdentityTableYieldsExactlyOneRow(t *testing.T) {
	var tbl IdentityTable
	exists, err := tbl.Exists(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, exists)

	scanner, err := tbl.NewScanner(context.Background(), nil)
	require.NoError(t, err)
	row := scanner.Row()
	require.NotNil(t, row)
	next, err := scanner.Step(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, next)

	_, err = tbl.NewUpdater(context.Background(), nil)
	assert.ErrorIs(t, err, rowerr.ErrUnsupported)
}

func TestEmptyTableAlwaysReportsEmpty(t *testing.T) {
	inner := &fakeTable{empty: false, anyRows: true, rows: []testRow{{Value: 1}}}
	et := NewEmptyTable[testRow](inner)

	empty, err := et.IsEmpty(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, empty)

	any_, err := et.AnyRows(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, any_)

	_, ok, err := et.TryLoad(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	scanner, err := et.NewScanner(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, scanner.Row())
}
