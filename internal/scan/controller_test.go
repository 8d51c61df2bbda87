package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareLowUnboundedSortsFirst(t *testing.T) {
	unbounded := singleController(-1, 5, true, true)
	bounded := singleController(2, 5, true, true)
	assert.Negative(t, CompareLow[testRow](unbounded, bounded))
	assert.Positive(t, CompareLow[testRow](bounded, unbounded))
}

func TestCompareLowInclusiveSortsBeforeExclusiveAtSameKey(t *testing.T) {
	incl := singleController(3, 5, true, true)
	excl := singleController(3, 5, false, true)
	assert.Negative(t, CompareLow[testRow](incl, excl))
}

func TestCompareHighUnboundedSortsLast(t *testing.T) {
	unbounded := singleController(1, -1, true, true)
	bounded := singleController(1, 5, true, true)
	assert.Positive(t, CompareHigh[testRow](unbounded, bounded))
}

func TestCompareHighInclusiveSortsAfterExclusiveAtSameKey(t *testing.T) {
	incl := singleController(1, 5, true, true)
	excl := singleController(1, 5, true, false)
	assert.Positive(t, CompareHigh[testRow](incl, excl))
}

func TestIsEmptySentinel(t *testing.T) {
	empty := NewSingleScanController(SingleScanControllerConfig[testRow]{
		Evaluator: &testEvaluator{},
		LowBound:  EmptyBound(),
	})
	assert.True(t, empty.IsEmpty())

	nonEmpty := singleController(1, 5, true, true)
	assert.False(t, nonEmpty.IsEmpty())
}
