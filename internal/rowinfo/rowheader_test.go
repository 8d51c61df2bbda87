package rowinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerTestInfo(t *testing.T) *RowInfo {
	t.Helper()
	info, err := NewBuilder("test.Header").
		AddKeyColumn(ColumnInfo{Name: "id", TypeCode: TypeLong}).
		AddValueColumn(ColumnInfo{Name: "name", TypeCode: TypeString, Nullable: true}).
		Build()
	require.NoError(t, err)
	return info
}

func TestRowHeaderEncodeDecodeRoundTrip(t *testing.T) {
	info := headerTestInfo(t)
	h := NewRowHeader(info)

	encoded, err := EncodeRowHeader(h)
	require.NoError(t, err)

	decoded, err := DecodeRowHeader(encoded)
	require.NoError(t, err)

	assert.True(t, h.Equal(decoded))
	assert.Equal(t, h.Hash(), decoded.Hash())
}

func TestRowHeaderWithLengthRoundTrip(t *testing.T) {
	info := headerTestInfo(t)
	h := NewRowHeader(info)

	framed, err := EncodeRowHeaderWithLength(h)
	require.NoError(t, err)

	decoded, rest, err := DecodeRowHeaderWithLength(framed)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.True(t, h.Equal(decoded))
}

func TestRowHeaderDecodeRejectsTrailingBytes(t *testing.T) {
	info := headerTestInfo(t)
	h := NewRowHeader(info)
	encoded, err := EncodeRowHeader(h)
	require.NoError(t, err)

	_, err = DecodeRowHeader(append(encoded, 0xFF))
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestRowHeaderDecodeRejectsTruncated(t *testing.T) {
	info := headerTestInfo(t)
	h := NewRowHeader(info)
	encoded, err := EncodeRowHeader(h)
	require.NoError(t, err)

	_, err = DecodeRowHeader(encoded[:len(encoded)-1])
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestRowHeaderWithLengthRejectsBadLength(t *testing.T) {
	info := headerTestInfo(t)
	h := NewRowHeader(info)
	framed, err := EncodeRowHeaderWithLength(h)
	require.NoError(t, err)

	// Corrupt the length prefix to claim more bytes than are present.
	framed[3] += 100

	_, _, err = DecodeRowHeaderWithLength(framed)
	assert.ErrorIs(t, err, ErrMalformedHeader)
}

func TestRowHeaderEqualityIsValueBased(t *testing.T) {
	info := headerTestInfo(t)
	h1 := NewRowHeader(info)
	h2 := NewRowHeader(info)
	assert.True(t, h1.Equal(h2))
	assert.NotSame(t, h1, h2)
}
