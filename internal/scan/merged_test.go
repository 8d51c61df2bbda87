package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtable/internal/storage/memstore"
)

func singleController(low, high int32, lowIncl, highIncl bool) *SingleScanController[testRow] {
	var lowB, highB []byte
	if low >= 0 {
		lowB = encodeKey(low)
	}
	if high >= 0 {
		highB = encodeKey(high)
	}
	return NewSingleScanController(SingleScanControllerConfig[testRow]{
		Evaluator:     &testEvaluator{},
		LowBound:      lowB,
		LowInclusive:  lowIncl,
		HighBound:     highB,
		HighInclusive: highIncl,
	})
}

func TestTryMergeOverlapping(t *testing.T) {
	low := singleController(1, 5, true, true)
	high := singleController(3, 8, true, true)

	merged, ok := TryMerge[testRow](low, high)
	require.True(t, ok)
	assert.Equal(t, encodeKey(1), merged.LowBound())
	assert.Equal(t, encodeKey(8), merged.HighBound())
}

func TestTryMergeRejectsDisjoint(t *testing.T) {
	low := singleController(1, 2, true, true)
	high := singleController(5, 8, true, true)
	_, ok := TryMerge[testRow](low, high)
	assert.False(t, ok)
}

func TestTryMergeRejectsDifferentReverse(t *testing.T) {
	low := NewSingleScanController(SingleScanControllerConfig[testRow]{
		Evaluator: &testEvaluator{}, LowBound: encodeKey(1), HighBound: encodeKey(5),
		LowInclusive: true, HighInclusive: true, Reverse: false,
	})
	high := NewSingleScanController(SingleScanControllerConfig[testRow]{
		Evaluator: &testEvaluator{}, LowBound: encodeKey(3), HighBound: encodeKey(8),
		LowInclusive: true, HighInclusive: true, Reverse: true,
	})
	_, ok := TryMerge[testRow](low, high)
	assert.False(t, ok)
}

func TestMergedScannerEmitsUnionExactlyOnce(t *testing.T) {
	ix := memstore.New(1)
	fillIndex(ix, 1, 2, 3, 4, 5, 6, 7, 8)
	txn := memstore.NewTransaction()
	ctx := context.Background()

	low := singleController(1, 5, true, true)
	high := singleController(3, 8, true, true)
	merged, ok := TryMerge[testRow](low, high)
	require.True(t, ok)

	scanner := NewBasicScanner("test", ix, txn, merged, Hooks[testRow]{})
	require.NoError(t, scanner.Init(ctx, nil))

	var got []int32
	for row := scanner.Row(); row != nil; row, _ = scanner.Step(ctx, nil) {
		got = append(got, row.K)
	}
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, got)
}
