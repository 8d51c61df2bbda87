package rowinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestRowInfo(t *testing.T) *RowInfo {
	t.Helper()
	info, err := NewBuilder("test.Widget").
		AddKeyColumn(ColumnInfo{Name: "k", TypeCode: TypeInt}).
		AddValueColumn(ColumnInfo{Name: "v", TypeCode: TypeString, Nullable: true}).
		AddValueColumn(ColumnInfo{Name: "id", TypeCode: TypeLong, AutoMin: 1, AutoMax: 1<<62}).
		AddSecondaryIndex("v_idx", []string{"v"}, []string{"k"}).
		Build()
	require.NoError(t, err)
	return info
}

func TestRowInfoInvariants(t *testing.T) {
	info := buildTestRowInfo(t)

	assert.True(t, info.HasPrimaryKey())
	assert.Len(t, info.KeyColumns(), 1)
	assert.Len(t, info.ValueColumns(), 2)
	assert.Len(t, info.AllColumns(), 3)

	auto, ok := info.AutoColumn()
	require.True(t, ok)
	assert.Equal(t, "id", auto.Name)

	idx := info.SecondaryIndexes()
	require.Len(t, idx, 1)
	assert.Equal(t, "v_idx", idx[0].Name)
	assert.Len(t, idx[0].KeyColumns(), 1)
	assert.Len(t, idx[0].ValueColumns(), 1)
}

func TestRowInfoRejectsDuplicateAutoColumn(t *testing.T) {
	_, err := NewBuilder("test.Bad").
		AddKeyColumn(ColumnInfo{Name: "a", TypeCode: TypeInt, AutoMin: 1, AutoMax: 100}).
		AddValueColumn(ColumnInfo{Name: "b", TypeCode: TypeLong, AutoMin: 1, AutoMax: 100}).
		Build()
	assert.ErrorContains(t, err, "at most one auto-increment column")
}

func TestRowInfoRejectsNonIntegralAuto(t *testing.T) {
	_, err := NewBuilder("test.Bad").
		AddKeyColumn(ColumnInfo{Name: "a", TypeCode: TypeString, AutoMin: 1, AutoMax: 100}).
		Build()
	assert.ErrorContains(t, err, "must be uint, ulong, int, or long")
}

func TestRowInfoClearsNullLowOnNonNullablePrimitive(t *testing.T) {
	info, err := NewBuilder("test.Clear").
		AddKeyColumn(ColumnInfo{Name: "a", TypeCode: TypeInt | ModNullLow, Nullable: false}).
		Build()
	require.NoError(t, err)
	col, _ := info.Column("a")
	assert.False(t, col.TypeCode.IsNullLow())
}

func TestRowInfoSecondaryIndexUnknownColumn(t *testing.T) {
	_, err := NewBuilder("test.Bad").
		AddKeyColumn(ColumnInfo{Name: "a", TypeCode: TypeInt}).
		AddSecondaryIndex("bad_idx", []string{"missing"}, nil).
		Build()
	assert.ErrorContains(t, err, "unknown column")
}

func TestCachedBuildsOnce(t *testing.T) {
	calls := 0
	build := func() (*RowInfo, error) {
		calls++
		return NewBuilder("test.Cached").AddKeyColumn(ColumnInfo{Name: "k", TypeCode: TypeInt}).Build()
	}
	info1, err := Cached("test.Cached.unique1", build)
	require.NoError(t, err)
	info2, err := Cached("test.Cached.unique1", build)
	require.NoError(t, err)
	assert.Same(t, info1, info2)
	assert.Equal(t, 1, calls)
}
