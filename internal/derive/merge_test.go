package derive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeMidHalfEvenRounding(t *testing.T) {
	assert.Equal(t, 1, mergeMid(2))
	assert.Equal(t, 2, mergeMid(4))
	// n=3: 1.5 rounds to the nearest even integer between 1 and 2 -> 2.
	assert.Equal(t, 2, mergeMid(3))
	// n=5: 2.5 rounds to the nearest even integer between 2 and 3 -> 2.
	assert.Equal(t, 2, mergeMid(5))
	// n=7: 3.5 rounds to the nearest even integer between 3 and 4 -> 4.
	assert.Equal(t, 4, mergeMid(7))
}

func TestMergeScannerInterleavesSortedSources(t *testing.T) {
	a := newSliceSource(testRow{Value: 1}, testRow{Value: 4}, testRow{Value: 7})
	a.Init()
	b := newSliceSource(testRow{Value: 2}, testRow{Value: 3})
	b.Init()
	c := newSliceSource(testRow{Value: 5}, testRow{Value: 6})
	c.Init()

	s := NewMergeScanner[testRow]([]Source[testRow]{a, b, c}, fullCmp)
	got := drainSource(t, s)

	var values []int
	for _, r := range got {
		values = append(values, r.Value)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, values)
	require.NoError(t, s.Close())
}

func TestMergeScannerSingleSource(t *testing.T) {
	a := newSliceSource(testRow{Value: 1}, testRow{Value: 2})
	a.Init()
	s := NewMergeScanner[testRow]([]Source[testRow]{a}, fullCmp)
	got := drainSource(t, s)
	assert.Len(t, got, 2)
}

// mutSource adapts sliceSource to Mutator by recording the last Update/Delete
// call.
type mutSource struct {
	*sliceSource
	updated, deleted *testRow
}

func (m *mutSource) UpdateRow(_ context.Context, row *testRow) error {
	cp := *row
	m.updated = &cp
	return nil
}

func (m *mutSource) DeleteRow(_ context.Context, row *testRow) error {
	cp := *row
	m.deleted = &cp
	return nil
}

func TestMergeUpdaterRoutesToActiveChild(t *testing.T) {
	a := &mutSource{sliceSource: newSliceSource(testRow{Value: 1}, testRow{Value: 3})}
	a.Init()
	b := &mutSource{sliceSource: newSliceSource(testRow{Value: 2})}
	b.Init()

	u := NewMergeUpdater[testRow]([]Mutator[testRow]{a, b}, fullCmp)
	assert.Equal(t, 1, u.Row().Value)

	require.NoError(t, u.UpdateRow(context.Background(), &testRow{Value: 1}))
	require.NotNil(t, a.updated)
	assert.Nil(t, b.updated)

	_, err := u.Step(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, u.Row().Value)

	require.NoError(t, u.DeleteRow(context.Background(), &testRow{Value: 2}))
	require.NotNil(t, b.deleted)
	assert.Nil(t, a.deleted)
}
