package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryDB(t *testing.T) *sqlx.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := Init("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func countBots(t *testing.T, database *sqlx.DB) int {
	t.Helper()
	var n int
	require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM bots`))
	return n
}

func TestRunMigrations_CreatesSchema(t *testing.T) {
	database := memoryDB(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, database.DB, "sqlite"))

	version, err := Version(ctx, database.DB, "sqlite")
	require.NoError(t, err)
	assert.EqualValues(t, 3, version)

	for _, table := range []string{"users", "bots", "files"} {
		var n int
		err := database.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = $1`, table)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestRunMigrations_Idempotent(t *testing.T) {
	database := memoryDB(t)
	ctx := context.Background()

	require.NoError(t, RunMigrations(ctx, database.DB, "sqlite"))
	require.NoError(t, RunMigrations(ctx, database.DB, "sqlite"))
}

func TestMigrateDown_RollsBackOneStep(t *testing.T) {
	database := memoryDB(t)
	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, database.DB, "sqlite"))

	require.NoError(t, MigrateDown(ctx, database.DB, "sqlite"))

	version, err := Version(ctx, database.DB, "sqlite")
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)

	var n int
	require.NoError(t, database.Get(&n, `SELECT COUNT(*) FROM pragma_table_info('users') WHERE name = 'deleted_at'`))
	assert.Zero(t, n)
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	database := memoryDB(t)
	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, database.DB, "sqlite"))

	err := WithTx(ctx, database, nil, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO bots (id, token, username) VALUES ('b1', 't1', 'one_bot')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countBots(t, database))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	database := memoryDB(t)
	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, database.DB, "sqlite"))

	boom := errors.New("boom")
	err := WithTx(ctx, database, nil, func(tx *sqlx.Tx) error {
		_, execErr := tx.ExecContext(ctx, `INSERT INTO bots (id, token, username) VALUES ('b1', 't1', 'one_bot')`)
		require.NoError(t, execErr)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countBots(t, database))
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	database := memoryDB(t)
	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, database.DB, "sqlite"))

	defer func() {
		require.NotNil(t, recover(), "panic must propagate")
		assert.Equal(t, 0, countBots(t, database))
	}()

	_ = WithTx(ctx, database, nil, func(tx *sqlx.Tx) error {
		_, execErr := tx.ExecContext(ctx, `INSERT INTO bots (id, token, username) VALUES ('b1', 't1', 'one_bot')`)
		require.NoError(t, execErr)
		panic("kaput")
	})
}
