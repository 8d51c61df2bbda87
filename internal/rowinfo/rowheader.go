package rowinfo

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedHeader is returned by DecodeRowHeader when the encoded form
// is truncated, overruns its advertised length, or leaves trailing bytes.
var ErrMalformedHeader = errors.New("rowinfo: malformed row header")

const maxColumnNameLen = 65535

// RowHeader is the wire-serialization header for remoting a row type's
// shape: its column names, type codes, and per-column flags. Two headers
// with equal fields compare equal and hash equal; Hash is computed once
// and cached.
type RowHeader struct {
	NumKeys     int32
	ColumnNames []string
	ColumnTypes []int32
	ColumnFlags []int32

	hash     int32
	hashSet  bool
}

// NewRowHeader builds a RowHeader from an already-validated RowInfo. Key
// columns are listed first (NumKeys of them), in RowInfo.KeyColumns order,
// followed by value columns.
func NewRowHeader(info *RowInfo) *RowHeader {
	keys := info.KeyColumns()
	values := info.ValueColumns()

	h := &RowHeader{
		NumKeys:     int32(len(keys)),
		ColumnNames: make([]string, 0, len(keys)+len(values)),
		ColumnTypes: make([]int32, 0, len(keys)+len(values)),
		ColumnFlags: make([]int32, 0, len(keys)+len(values)),
	}
	add := func(c *ColumnInfo) {
		h.ColumnNames = append(h.ColumnNames, c.Name)
		h.ColumnTypes = append(h.ColumnTypes, int32(c.TypeCode))
		var flags int32
		if c.Nullable {
			flags |= 1
		}
		if c.Hidden {
			flags |= 2
		}
		if c.IsAuto() {
			flags |= 4
		}
		h.ColumnFlags = append(h.ColumnFlags, flags)
	}
	for _, c := range keys {
		add(c)
	}
	for _, c := range values {
		add(c)
	}
	return h
}

// Hash returns the header's cached hash, computing it on first use.
func (h *RowHeader) Hash() int32 {
	if h.hashSet {
		return h.hash
	}
	hash := int32(h.NumKeys)
	for i, name := range h.ColumnNames {
		for _, r := range name {
			hash = hash*31 + int32(r)
		}
		hash = hash*31 + h.ColumnTypes[i]
		hash = hash*31 + h.ColumnFlags[i]
	}
	h.hash = hash
	h.hashSet = true
	return hash
}

// Equal compares two headers field by field (NumKeys, and all three
// parallel arrays), ignoring the cached hash.
func (h *RowHeader) Equal(other *RowHeader) bool {
	if h == nil || other == nil {
		return h == other
	}
	if h.NumKeys != other.NumKeys || len(h.ColumnNames) != len(other.ColumnNames) {
		return false
	}
	for i := range h.ColumnNames {
		if h.ColumnNames[i] != other.ColumnNames[i] ||
			h.ColumnTypes[i] != other.ColumnTypes[i] ||
			h.ColumnFlags[i] != other.ColumnFlags[i] {
			return false
		}
	}
	return true
}

// EncodeRowHeader writes h in the big-endian wire form described in §3:
//
//	hash:i32 numKeys:i32 numColumns:i32
//	repeat numColumns: (strlen:u16, name:utf8[strlen], type:i32, flags:i32)
//
// The caller is responsible for any outer length prefix; EncodeRowHeader
// writes only the fields above.
func EncodeRowHeader(h *RowHeader) ([]byte, error) {
	n := len(h.ColumnNames)
	size := 4 + 4 + 4
	nameBytes := make([][]byte, n)
	for i, name := range h.ColumnNames {
		nb := []byte(name)
		if len(nb) == 0 {
			return nil, fmt.Errorf("rowinfo: column %d: name must not be empty", i)
		}
		if len(nb) > maxColumnNameLen {
			return nil, fmt.Errorf("rowinfo: column %d: name exceeds %d bytes", i, maxColumnNameLen)
		}
		nameBytes[i] = nb
		size += 2 + len(nb) + 4 + 4
	}

	out := make([]byte, size)
	off := 0
	binary.BigEndian.PutUint32(out[off:], uint32(h.Hash()))
	off += 4
	binary.BigEndian.PutUint32(out[off:], uint32(h.NumKeys))
	off += 4
	binary.BigEndian.PutUint32(out[off:], uint32(n))
	off += 4
	for i := 0; i < n; i++ {
		nb := nameBytes[i]
		binary.BigEndian.PutUint16(out[off:], uint16(len(nb)))
		off += 2
		copy(out[off:], nb)
		off += len(nb)
		binary.BigEndian.PutUint32(out[off:], uint32(h.ColumnTypes[i]))
		off += 4
		binary.BigEndian.PutUint32(out[off:], uint32(h.ColumnFlags[i]))
		off += 4
	}
	return out, nil
}

// EncodeRowHeaderWithLength is EncodeRowHeader prefixed with a big-endian
// u32 length of the body that follows, for transports that frame messages
// by length rather than by type.
func EncodeRowHeaderWithLength(h *RowHeader) ([]byte, error) {
	body, err := EncodeRowHeader(h)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[4:], body)
	return out, nil
}

// DecodeRowHeader parses the wire form written by EncodeRowHeader. It must
// consume exactly len(data) bytes; any short read or trailing bytes is
// ErrMalformedHeader.
func DecodeRowHeader(data []byte) (*RowHeader, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("%w: truncated fixed header", ErrMalformedHeader)
	}
	off := 0
	hash := int32(binary.BigEndian.Uint32(data[off:]))
	off += 4
	numKeys := int32(binary.BigEndian.Uint32(data[off:]))
	off += 4
	numColumns := int32(binary.BigEndian.Uint32(data[off:]))
	off += 4
	if numColumns < 0 || numKeys < 0 || numKeys > numColumns {
		return nil, fmt.Errorf("%w: invalid numKeys/numColumns", ErrMalformedHeader)
	}

	h := &RowHeader{
		NumKeys:     numKeys,
		ColumnNames: make([]string, 0, numColumns),
		ColumnTypes: make([]int32, 0, numColumns),
		ColumnFlags: make([]int32, 0, numColumns),
	}

	for i := int32(0); i < numColumns; i++ {
		if off+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated column %d length", ErrMalformedHeader, i)
		}
		strlen := int(binary.BigEndian.Uint16(data[off:]))
		off += 2
		if off+strlen+8 > len(data) {
			return nil, fmt.Errorf("%w: truncated column %d body", ErrMalformedHeader, i)
		}
		name := string(data[off : off+strlen])
		off += strlen
		if name == "" {
			return nil, fmt.Errorf("%w: column %d: empty name", ErrMalformedHeader, i)
		}
		typ := int32(binary.BigEndian.Uint32(data[off:]))
		off += 4
		flags := int32(binary.BigEndian.Uint32(data[off:]))
		off += 4

		h.ColumnNames = append(h.ColumnNames, name)
		h.ColumnTypes = append(h.ColumnTypes, typ)
		h.ColumnFlags = append(h.ColumnFlags, flags)
	}

	if off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedHeader, len(data)-off)
	}

	h.hash = hash
	h.hashSet = true
	return h, nil
}

// DecodeRowHeaderWithLength reads a big-endian u32 length prefix, then
// decodes exactly that many following bytes as the header body. Any bytes
// in data beyond the prefix+body are left unconsumed and returned as the
// second result; callers that expect the header to be the entirety of data
// should check that the remainder is empty.
func DecodeRowHeaderWithLength(data []byte) (*RowHeader, []byte, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated length prefix", ErrMalformedHeader)
	}
	length := binary.BigEndian.Uint32(data)
	if int(length) < 0 || 4+int(length) > len(data) {
		return nil, nil, fmt.Errorf("%w: advertised length %d exceeds available %d bytes", ErrMalformedHeader, length, len(data)-4)
	}
	body := data[4 : 4+int(length)]
	h, err := DecodeRowHeader(body)
	if err != nil {
		return nil, nil, err
	}
	return h, data[4+int(length):], nil
}
