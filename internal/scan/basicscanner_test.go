package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowtable/internal/storage/memstore"
)

func newScannerFixture(t *testing.T, ks ...int32) (*memstore.Index, *memstore.Transaction) {
	t.Helper()
	ix := memstore.New(1)
	fillIndex(ix, ks...)
	return ix, memstore.NewTransaction()
}

func TestBasicScannerEmitsAscendingOrder(t *testing.T) {
	ix, txn := newScannerFixture(t, 5, 1, 3, 2, 4)
	ctx := context.Background()

	controller := NewSingleScanController(SingleScanControllerConfig[testRow]{
		Evaluator: &testEvaluator{},
	})
	scanner := NewBasicScanner("test", ix, txn, controller, Hooks[testRow]{})
	require.NoError(t, scanner.Init(ctx, nil))

	var got []int32
	for row := scanner.Row(); row != nil; row, _ = scanner.Step(ctx, nil) {
		got = append(got, row.K)
	}
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, got)
	assert.NoError(t, scanner.Close())
}

func TestBasicScannerReverse(t *testing.T) {
	ix, txn := newScannerFixture(t, 1, 2, 3)
	ctx := context.Background()

	controller := NewSingleScanController(SingleScanControllerConfig[testRow]{
		Evaluator: &testEvaluator{},
		Reverse:   true,
	})
	scanner := NewBasicScanner("test", ix, txn, controller, Hooks[testRow]{})
	require.NoError(t, scanner.Init(ctx, nil))

	var got []int32
	for row := scanner.Row(); row != nil; row, _ = scanner.Step(ctx, nil) {
		got = append(got, row.K)
	}
	assert.Equal(t, []int32{3, 2, 1}, got)
}

func TestBasicScannerAppliesResidualPredicate(t *testing.T) {
	ix, txn := newScannerFixture(t, 1, 2, 3, 4, 5)
	ctx := context.Background()

	evenOnly := RowPredicateFunc[testRow](func(r *testRow) bool { return r.K%2 == 0 })
	controller := NewSingleScanController(SingleScanControllerConfig[testRow]{
		Evaluator: &testEvaluator{pred: evenOnly},
	})
	scanner := NewBasicScanner("test", ix, txn, controller, Hooks[testRow]{})
	require.NoError(t, scanner.Init(ctx, nil))

	var got []int32
	for row := scanner.Row(); row != nil; row, _ = scanner.Step(ctx, nil) {
		got = append(got, row.K)
	}
	assert.Equal(t, []int32{2, 4}, got)
}

func TestBasicScannerEmptyIndex(t *testing.T) {
	ix, txn := newScannerFixture(t)
	ctx := context.Background()

	controller := NewSingleScanController(SingleScanControllerConfig[testRow]{Evaluator: &testEvaluator{}})
	scanner := NewBasicScanner("test", ix, txn, controller, Hooks[testRow]{})
	require.NoError(t, scanner.Init(ctx, nil))
	assert.Nil(t, scanner.Row())
}

func TestBasicScannerCloseIsIdempotent(t *testing.T) {
	ix, txn := newScannerFixture(t, 1)
	ctx := context.Background()

	controller := NewSingleScanController(SingleScanControllerConfig[testRow]{Evaluator: &testEvaluator{}})
	scanner := NewBasicScanner("test", ix, txn, controller, Hooks[testRow]{})
	require.NoError(t, scanner.Init(ctx, nil))
	require.NoError(t, scanner.Close())
	require.NoError(t, scanner.Close())
	assert.Nil(t, scanner.Row())
}
