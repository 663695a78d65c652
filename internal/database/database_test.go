package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header comment
CREATE TABLE a (x TEXT DEFAULT 'semi;colon');
CREATE INDEX i ON a (x);
`
	got := splitStatements(sql)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "'semi;colon'")
	assert.Equal(t, "CREATE INDEX i ON a (x)", got[1])
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	// Second run must not reapply anything.
	require.NoError(t, Migrate(db))

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM schema_migrations"))
	names, err := migrationNames()
	require.NoError(t, err)
	assert.Equal(t, len(names), count)
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	boom := errors.New("boom")
	err = WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO user_directory (user_id, nickname, updated_at) VALUES (?, ?, ?)", "u1", "Alice", 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM user_directory"))
	assert.Zero(t, count)
}

func TestWithTx_Commit(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	err = WithTx(ctx, db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO user_directory (user_id, nickname, updated_at) VALUES (?, ?, ?)", "u1", "Alice", 1)
		return err
	})
	require.NoError(t, err)

	var nickname string
	require.NoError(t, db.Get(&nickname, "SELECT nickname FROM user_directory WHERE user_id = ?", "u1"))
	assert.Equal(t, "Alice", nickname)
}
