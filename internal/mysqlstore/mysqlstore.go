// Package mysqlstore is a concrete storage.Index/Cursor/Transaction
// adapter backing one physical MySQL table per logical row index, per
// SPEC_FULL.md §11. Spec §1 places the real storage engine out of scope;
// this package gives the core something real to scan and update against
// in integration tests, using database/sql and
// github.com/go-sql-driver/mysql the way the teacher's Applier connects
// (internal/apply.Applier.Connect).
package mysqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	"rowtable/internal/rowerr"
	"rowtable/internal/storage"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// querier is satisfied by both *sql.DB and *sql.Tx; Index methods run
// against whichever one the caller's Transaction wraps, so reads and
// writes inside a Transaction participate in its MySQL transaction
// instead of escaping to autocommit.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (ix *Index) conn(txn storage.Transaction) querier {
	if t, ok := txn.(*Transaction); ok && t.tx != nil {
		return t.tx
	}
	return ix.db
}

func quoteIdent(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("mysqlstore: invalid table identifier %q", name)
	}
	return "`" + name + "`", nil
}

// Index is a storage.Index backed by a two-column (k, v) MySQL table:
// k VARBINARY(767) PRIMARY KEY, v LONGBLOB. One Index wraps one such
// table, playing the role the source's physical table-per-index storage
// layer plays underneath a logical Table[R].
type Index struct {
	db    *sql.DB
	id    int64
	table string // already-validated, quoted identifier

	mu     sync.Mutex
	closed bool
}

// Open prepares (creating if needed) the backing table and returns an
// Index over it. table must be a plain SQL identifier (letters, digits,
// underscore); it is never interpolated from untrusted input elsewhere in
// this package.
func Open(ctx context.Context, db *sql.DB, id int64, table string) (*Index, error) {
	quoted, err := quoteIdent(table)
	if err != nil {
		return nil, err
	}
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (k VARBINARY(767) NOT NULL PRIMARY KEY, v LONGBLOB NOT NULL)",
		quoted)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("mysqlstore: create table %s: %w", table, err)
	}
	return &Index{db: db, id: id, table: quoted}, nil
}

// ID implements storage.Index.
func (ix *Index) ID() int64 { return ix.id }

// Close marks the index closed; subsequent operations fail with
// rowerr.ErrClosedIndex, mirroring memstore.Index.Close.
func (ix *Index) Close() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.closed = true
}

func (ix *Index) checkOpen() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.closed {
		return rowerr.ErrClosedIndex
	}
	return nil
}

// IsEmpty implements storage.Index.
func (ix *Index) IsEmpty(ctx context.Context, txn storage.Transaction) (bool, error) {
	if err := ix.checkOpen(); err != nil {
		return false, err
	}
	var x int
	err := ix.conn(txn).QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", ix.table)).Scan(&x)
	switch {
	case err == sql.ErrNoRows:
		return true, nil
	case err != nil:
		return false, err
	default:
		return false, nil
	}
}

// Load implements storage.Index.
func (ix *Index) Load(ctx context.Context, txn storage.Transaction, key []byte) ([]byte, error) {
	if err := ix.checkOpen(); err != nil {
		return nil, err
	}
	var v []byte
	err := ix.conn(txn).QueryRowContext(ctx, fmt.Sprintf("SELECT v FROM %s WHERE k = ?", ix.table), key).Scan(&v)
	switch {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return v, nil
	}
}

// Insert implements storage.Index: returns (false, nil) without error if
// key already exists, matching memstore's duplicate-key signal.
func (ix *Index) Insert(ctx context.Context, txn storage.Transaction, key, value []byte) (bool, error) {
	if err := ix.checkOpen(); err != nil {
		return false, err
	}
	res, err := ix.conn(txn).ExecContext(ctx,
		fmt.Sprintf("INSERT IGNORE INTO %s (k, v) VALUES (?, ?)", ix.table), key, value)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (ix *Index) store(ctx context.Context, txn storage.Transaction, key, value []byte) error {
	if err := ix.checkOpen(); err != nil {
		return err
	}
	_, err := ix.conn(txn).ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)", ix.table),
		key, value)
	return err
}

func (ix *Index) delete(ctx context.Context, txn storage.Transaction, key []byte) error {
	if err := ix.checkOpen(); err != nil {
		return err
	}
	_, err := ix.conn(txn).ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE k = ?", ix.table), key)
	return err
}

// snapshot loads every (key, value) pair in ascending key order. Like
// memstore's Index.snapshot, a Cursor takes one of these lazily and holds
// it for the duration of its current position; it is not a live view, so
// this adapter shares memstore's documented non-MVCC scope (see the
// memstore package doc).
func (ix *Index) snapshot(ctx context.Context, txn storage.Transaction) ([]kv, error) {
	rows, err := ix.conn(txn).QueryContext(ctx, fmt.Sprintf("SELECT k, v FROM %s ORDER BY k ASC", ix.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []kv
	for rows.Next() {
		var k, v []byte
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out = append(out, kv{key: k, value: v})
	}
	return out, rows.Err()
}

type kv struct{ key, value []byte }

// NewCursor implements storage.Index.
func (ix *Index) NewCursor(_ context.Context, txn storage.Transaction) (storage.Cursor, error) {
	if err := ix.checkOpen(); err != nil {
		return nil, err
	}
	return &Cursor{ix: ix, txn: txn, pos: -1, autoload: true}, nil
}

var _ storage.Index = (*Index)(nil)
