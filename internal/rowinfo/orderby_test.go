package rowinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderByTestInfo(t *testing.T) *RowInfo {
	t.Helper()
	info, err := NewBuilder("test.Ordered").
		AddKeyColumn(ColumnInfo{Name: "a", TypeCode: TypeInt}).
		AddValueColumn(ColumnInfo{Name: "b", TypeCode: TypeString, Nullable: true}).
		Build()
	require.NoError(t, err)
	return info
}

func TestForSpecBasic(t *testing.T) {
	info := orderByTestInfo(t)
	ob, err := ForSpec(info, "+a-!b")
	require.NoError(t, err)
	require.Equal(t, 2, ob.Len())

	ra, ok := ob.Rule("a")
	require.True(t, ok)
	assert.False(t, ra.EffectiveType.IsDescending())

	rb, ok := ob.Rule("b")
	require.True(t, ok)
	assert.True(t, rb.EffectiveType.IsDescending())
	assert.True(t, rb.EffectiveType.IsNullLow())
}

func TestForSpecEmptyMeansNoOrder(t *testing.T) {
	info := orderByTestInfo(t)
	ob, err := ForSpec(info, "")
	require.NoError(t, err)
	assert.Equal(t, 0, ob.Len())
	assert.Equal(t, "", ob.Spec())
}

func TestForSpecDuplicateIgnored(t *testing.T) {
	info := orderByTestInfo(t)
	ob, err := ForSpec(info, "+a-a")
	require.NoError(t, err)
	assert.Equal(t, 1, ob.Len())
	r, _ := ob.Rule("a")
	assert.False(t, r.EffectiveType.IsDescending())
}

func TestForSpecRoundTrip(t *testing.T) {
	info := orderByTestInfo(t)
	for _, spec := range []string{"+a", "-a+b", "+a-!b", ""} {
		ob1, err := ForSpec(info, spec)
		require.NoError(t, err)
		ob2, err := ForSpec(info, ob1.Spec())
		require.NoError(t, err)
		assert.True(t, ob1.Equal(ob2), "spec %q did not round-trip", spec)
	}
}

func TestForSpecRejectsUnknownColumn(t *testing.T) {
	info := orderByTestInfo(t)
	_, err := ForSpec(info, "+nope")
	assert.ErrorIs(t, err, ErrMalformedSpec)
}

func TestForSpecRejectsBadLeadChar(t *testing.T) {
	info := orderByTestInfo(t)
	_, err := ForSpec(info, "a")
	assert.ErrorIs(t, err, ErrMalformedSpec)
}
