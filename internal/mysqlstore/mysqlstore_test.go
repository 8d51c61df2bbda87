package mysqlstore

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"rowtable/internal/rowerr"
)

// testMySQLContainer mirrors the teacher's own integration-test helper
// shape (internal/apply/apply_connector_test.go): spin a real MySQL 8,
// hand back a plain *sql.DB, and register cleanup via t.Cleanup.
type testMySQLContainer struct {
	container *mysql.MySQLContainer
	db        *sql.DB
}

func setupMySQL(t *testing.T) *testMySQLContainer {
	t.Helper()
	ctx := context.Background()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("root"),
		mysql.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start MySQL container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	require.NoError(t, err, "failed to get connection string")

	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err, "failed to open direct DB connection")
	require.NoError(t, db.PingContext(ctx), "failed to ping database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close DB connection: %v", err)
		}
	})

	return &testMySQLContainer{container: container, db: db}
}

func TestIndexStoreLoadRoundTripIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	tc := setupMySQL(t)
	ctx := context.Background()

	ix, err := Open(ctx, tc.db, 1, "orders_primary")
	require.NoError(t, err)

	txn, err := Begin(ctx, tc.db)
	require.NoError(t, err)

	inserted, err := ix.Insert(ctx, txn, []byte("k1"), []byte("v1"))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = ix.Insert(ctx, txn, []byte("k1"), []byte("v1-dup"))
	require.NoError(t, err)
	assert.False(t, inserted)

	v, err := ix.Load(ctx, txn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, txn.Commit(ctx))
}

func TestCursorWalksRowsInKeyOrderIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	tc := setupMySQL(t)
	ctx := context.Background()

	ix, err := Open(ctx, tc.db, 2, "orders_cursor")
	require.NoError(t, err)

	txn, err := Begin(ctx, tc.db)
	require.NoError(t, err)
	for _, k := range []string{"b", "a", "c"} {
		_, err := ix.Insert(ctx, txn, []byte(k), []byte("v-"+k))
		require.NoError(t, err)
	}
	require.NoError(t, txn.Commit(ctx))

	readTxn, err := Begin(ctx, tc.db)
	require.NoError(t, err)
	cur, err := ix.NewCursor(ctx, readTxn)
	require.NoError(t, err)

	require.NoError(t, cur.First(ctx))
	var keys []string
	for cur.Key() != nil {
		keys = append(keys, string(cur.Key()))
		require.NoError(t, cur.Next(ctx))
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
	require.NoError(t, readTxn.Commit(ctx))
}

func TestIndexClosedRejectsOperationsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	tc := setupMySQL(t)
	ctx := context.Background()

	ix, err := Open(ctx, tc.db, 3, "orders_closed")
	require.NoError(t, err)
	ix.Close()

	_, err = ix.Load(ctx, nil, []byte("k"))
	assert.ErrorIs(t, err, rowerr.ErrClosedIndex)
}

func TestOpenRejectsInvalidTableIdentifier(t *testing.T) {
	_, err := Open(context.Background(), nil, 1, "not a valid ident; DROP TABLE x")
	assert.Error(t, err)
}
