// Package scan implements the scan-controller and basic-scanner machinery
// of spec §4.1–§4.2: composing key-range controllers over a storage index
// and driving a cursor through them, decoding admitted rows through a
// caller-supplied RowEvaluator.
package scan

import (
	"context"

	"rowtable/internal/storage"
)

// Outcome is the tri-state result of evaluating one cursor position,
// replacing the source's StoppedCursor exception with an explicit return
// value per spec §9's "exception control flow" design note.
type Outcome int

const (
	// Admitted means EvalRow populated row and it should be emitted.
	Admitted Outcome = iota
	// Rejected means the row failed the residual predicate; the scanner
	// should unlock (if freshly acquired) and advance.
	Rejected
	// Stopped means the evaluator deliberately aborted without producing
	// a row; the scanner retries the current position after unlocking.
	Stopped
)

// RowEvaluator decodes raw key/value bytes into a row struct and applies
// any residual predicate the storage-level scan range alone couldn't
// express. It also carries the update-path hooks used by §4.3's key- and
// value-changing updates.
type RowEvaluator[R any] interface {
	// EvalRow decodes the cursor's current key/value into row and applies
	// the residual predicate.
	EvalRow(ctx context.Context, cur storage.Cursor, lockResult storage.LockResult, row *R) (Outcome, error)

	// DecodeRow decodes key/value into row unconditionally (no predicate
	// applied); used by callers that already know the row is wanted.
	DecodeRow(key, value []byte, row *R) error

	// WriteRow encodes row back into key/value form, e.g. for insert.
	WriteRow(row *R) (key, value []byte, err error)

	// UpdateKey returns the new primary key row's columns would produce
	// against currentKey, or nil if the key is unchanged.
	UpdateKey(row *R, currentKey []byte) ([]byte, error)

	// UpdateValue returns the new encoded value for row given the
	// currently stored value.
	UpdateValue(row *R, currentValue []byte) ([]byte, error)
}

// JoinEvaluator is implemented by evaluators driving a scan over a
// secondary index that must consult the primary row to fully decode,
// per the optional primaryCursor parameter in spec §6.
type JoinEvaluator[R any] interface {
	RowEvaluator[R]
	EvalJoinedRow(ctx context.Context, cur, primaryCur storage.Cursor, lockResult storage.LockResult, row *R) (Outcome, error)
}

// RowPredicate is a residual filter an evaluator applies after decoding.
type RowPredicate[R any] interface {
	Test(row *R) bool
}

// RowPredicateFunc adapts a function to RowPredicate.
type RowPredicateFunc[R any] func(row *R) bool

// Test implements RowPredicate.
func (f RowPredicateFunc[R]) Test(row *R) bool { return f(row) }

// Characteristics mirrors java.util.Spliterator's bit-flag vocabulary, per
// spec §6.
type Characteristics int

const (
	CharDistinct    Characteristics = 0x1
	CharSorted      Characteristics = 0x4
	CharSized       Characteristics = 0x40
	CharNonNull     Characteristics = 0x100
	CharImmutable   Characteristics = 0x400
	CharConcurrent  Characteristics = 0x1000
	CharOrdered     Characteristics = 0x10
)

// Has reports whether flag is set.
func (c Characteristics) Has(flag Characteristics) bool { return c&flag != 0 }

// Factory is consumed from the planner/codegen layer (spec §6): given scan
// arguments or a predicate, it produces a Controller bound to a specific
// index and key range.
type Factory[R any] interface {
	ScanController(args []any) (Controller[R], error)
	Reverse() bool
	Predicate(args []any) (RowPredicate[R], error)
	Plan(args []any) (string, error)
	Characteristics() Characteristics
	ArgumentCount() int
}
