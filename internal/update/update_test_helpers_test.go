package update

import (
	"context"
	"encoding/binary"

	"rowtable/internal/scan"
	"rowtable/internal/storage"
	"rowtable/internal/storage/memstore"
)

type testRow struct {
	K rune
	V string
}

func encKey(k rune) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(k))
	return b
}

func decKey(b []byte) rune { return rune(binary.BigEndian.Uint32(b)) }

func encVal(v string) []byte { return []byte(v) }
func decVal(b []byte) string { return string(b) }

// testEvaluator decodes (k rune, v string) rows and supports key-changing
// updates: a row's K field is the new key.
type testEvaluator struct{}

func (testEvaluator) EvalRow(_ context.Context, cur storage.Cursor, _ storage.LockResult, row *testRow) (scan.Outcome, error) {
	row.K = decKey(cur.Key())
	row.V = decVal(cur.Value())
	return scan.Admitted, nil
}

func (testEvaluator) DecodeRow(key, value []byte, row *testRow) error {
	row.K = decKey(key)
	row.V = decVal(value)
	return nil
}

func (testEvaluator) WriteRow(row *testRow) ([]byte, []byte, error) {
	return encKey(row.K), encVal(row.V), nil
}

func (testEvaluator) UpdateKey(row *testRow, currentKey []byte) ([]byte, error) {
	newKey := encKey(row.K)
	if decKey(currentKey) == row.K {
		return nil, nil
	}
	return newKey, nil
}

func (testEvaluator) UpdateValue(row *testRow, _ []byte) ([]byte, error) {
	return encVal(row.V), nil
}

func fillRows(ix *memstore.Index, rows map[rune]string) {
	for k, v := range rows {
		_, _ = ix.Insert(context.Background(), nil, encKey(k), encVal(v))
	}
}

func fullController() scan.Controller[testRow] {
	return scan.NewSingleScanController(scan.SingleScanControllerConfig[testRow]{
		Evaluator: testEvaluator{},
	})
}

func scanAll(t interface {
	Row() *testRow
	Step(ctx context.Context, dest *testRow) (*testRow, error)
}) map[rune]string {
	out := map[rune]string{}
	ctx := context.Background()
	for row := t.Row(); row != nil; row, _ = t.Step(ctx, nil) {
		out[row.K] = row.V
	}
	return out
}
