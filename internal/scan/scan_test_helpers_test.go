package scan

import (
	"context"
	"encoding/binary"

	"rowtable/internal/storage"
)

// testRow is the fixture row type used across this package's tests: a
// single int32 key and int32 value, both big-endian encoded so byte order
// matches numeric order.
type testRow struct {
	K int32
	V int32
}

func encodeKey(k int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(k))
	return b
}

func encodeVal(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func decodeKey(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) }
func decodeVal(b []byte) int32 { return int32(binary.BigEndian.Uint32(b)) }

// testEvaluator is a RowEvaluator over testRow with an optional residual
// predicate.
type testEvaluator struct {
	pred RowPredicate[testRow]
}

func (e *testEvaluator) EvalRow(_ context.Context, cur storage.Cursor, _ storage.LockResult, row *testRow) (Outcome, error) {
	if err := e.DecodeRow(cur.Key(), cur.Value(), row); err != nil {
		return Rejected, err
	}
	if e.pred != nil && !e.pred.Test(row) {
		return Rejected, nil
	}
	return Admitted, nil
}

func (e *testEvaluator) DecodeRow(key, value []byte, row *testRow) error {
	row.K = decodeKey(key)
	row.V = decodeVal(value)
	return nil
}

func (e *testEvaluator) WriteRow(row *testRow) ([]byte, []byte, error) {
	return encodeKey(row.K), encodeVal(row.V), nil
}

func (e *testEvaluator) UpdateKey(row *testRow, currentKey []byte) ([]byte, error) {
	newKey := encodeKey(row.K)
	if decodeKey(currentKey) == row.K {
		return nil, nil
	}
	return newKey, nil
}

func (e *testEvaluator) UpdateValue(row *testRow, _ []byte) ([]byte, error) {
	return encodeVal(row.V), nil
}

// fillIndex stores (k, k*10) for each k in ks.
func fillIndex(ix interface {
	Insert(ctx context.Context, txn storage.Transaction, key, value []byte) (bool, error)
}, ks ...int32) {
	for _, k := range ks {
		_, _ = ix.Insert(context.Background(), nil, encodeKey(k), encodeVal(k*10))
	}
}

