package testdb

import (
	"database/sql"
	"testing"

	"github.com/The-Visitors/discord-bot/internal/db"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func SetupTestBadger(t *testing.T) (*badger.DB, func()) {
	dir := t.TempDir()

	bdb, err := db.OpenBadger(dir + "/badger")
	require.NoError(t, err)

	cleanup := func() {
		_ = bdb.Close()
	}
	return bdb, cleanup
}

func SetupTestSqlite(t *testing.T) (*sql.DB, func()) {
	dir := t.TempDir()

	sdb, err := db.OpenSqlite(dir + "/sqlite")
	require.NoError(t, err)

	cleanup := func() {
		_ = sdb.Close()
	}
	return sdb, cleanup
}
