package tx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE items (name TEXT NOT NULL)`)
	require.NoError(t, err)
	return db
}

func count(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestRunCommits(t *testing.T) {
	db := openDB(t)

	err := Run(context.Background(), db, nil, func(ctx context.Context) error {
		_, ok := From(ctx)
		assert.True(t, ok)
		_, err := Executor(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, count(t, db))
}

func TestRunRollsBackOnError(t *testing.T) {
	db := openDB(t)
	boom := errors.New("boom")

	err := Run(context.Background(), db, nil, func(ctx context.Context) error {
		if _, err := Executor(ctx, db).ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, count(t, db))
}

func TestRunReusesOuterTransaction(t *testing.T) {
	db := openDB(t)

	err := Run(context.Background(), db, nil, func(outer context.Context) error {
		outerTx, _ := From(outer)
		return Run(outer, db, nil, func(inner context.Context) error {
			innerTx, _ := From(inner)
			assert.Same(t, outerTx, innerTx)
			return nil
		})
	})

	require.NoError(t, err)
}

func TestExecutorFallsBackToDB(t *testing.T) {
	db := openDB(t)

	assert.Same(t, db, Executor(context.Background(), db))
	assert.Equal(t, context.Background(), WithTx(context.Background(), nil))
}
