package derive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoGrouper emits each accumulated row of the group back out one at a
// time, exercising the multi-row-per-group Emitting state.
type echoGrouper struct {
	group  int
	rows   []testRow
	pos    int
	closed bool
}

func (g *echoGrouper) Begin(seed *testRow) error {
	g.group = seed.Group
	g.rows = []testRow{*seed}
	g.pos = 0
	return nil
}

func (g *echoGrouper) Accumulate(row *testRow) error {
	g.rows = append(g.rows, *row)
	return nil
}

func (g *echoGrouper) Step(_ context.Context, target *testRow) (bool, error) {
	if g.pos >= len(g.rows) {
		return false, nil
	}
	*target = g.rows[g.pos]
	g.pos++
	return true, nil
}

func (g *echoGrouper) Finish(target *testRow) (bool, error) {
	return target.Value != -1, nil // sentinel: -1 values are filtered out
}

func (g *echoGrouper) Close() error {
	g.closed = true
	return nil
}

func TestGroupedScannerEmitsEveryRowPerGroup(t *testing.T) {
	src := newSliceSource(
		testRow{Group: 1, Value: 10},
		testRow{Group: 1, Value: 20},
		testRow{Group: 2, Value: 99},
	)
	src.Init()
	g := &echoGrouper{}
	s := NewGroupedScanner[testRow](src, g, groupCmp)
	require.NoError(t, s.Init(context.Background()))

	var got []testRow
	for {
		row, err := s.Step(context.Background(), nil)
		require.NoError(t, err)
		if row == nil {
			break
		}
		got = append(got, *row)
	}
	assert.Equal(t, []testRow{
		{Group: 1, Value: 10},
		{Group: 1, Value: 20},
		{Group: 2, Value: 99},
	}, got)
	assert.True(t, g.closed)
	assert.True(t, src.closed)
}

func TestGroupedScannerFinishFilterSkipsRows(t *testing.T) {
	src := newSliceSource(
		testRow{Group: 1, Value: -1},
		testRow{Group: 1, Value: 2},
	)
	src.Init()
	g := &echoGrouper{}
	s := NewGroupedScanner[testRow](src, g, groupCmp)
	require.NoError(t, s.Init(context.Background()))

	row, err := s.Step(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, testRow{Group: 1, Value: 2}, *row)

	row, err = s.Step(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestGroupedScannerEmptySourceClosesImmediately(t *testing.T) {
	src := newSliceSource()
	src.Init()
	g := &echoGrouper{}
	s := NewGroupedScanner[testRow](src, g, groupCmp)
	require.NoError(t, s.Init(context.Background()))
	assert.True(t, g.closed)
}
