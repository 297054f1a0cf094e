package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrport/userd/db/migration/users"
)

func TestNewMemoryMigratesUsersTable(t *testing.T) {
	db, err := NewMemory(users.AssetNames(), users.Asset)
	require.NoError(t, err)
	defer db.Close()

	var count int
	err = db.Get(&count, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestNewMemoryIsPrivate(t *testing.T) {
	db1, err := NewMemory(users.AssetNames(), users.Asset)
	require.NoError(t, err)
	defer db1.Close()

	db2, err := NewMemory(users.AssetNames(), users.Asset)
	require.NoError(t, err)
	defer db2.Close()

	_, err = db1.Exec("INSERT INTO users (id, created_at) VALUES ('a', CURRENT_TIMESTAMP)")
	require.NoError(t, err)

	var count int
	require.NoError(t, db2.Get(&count, "SELECT COUNT(*) FROM users"))
	assert.Equal(t, 0, count)
}

func TestNewFailsOnBrokenMigration(t *testing.T) {
	asset := func(name string) ([]byte, error) {
		return []byte("CREATE TABLE broken ("), nil
	}
	_, err := New(MemoryDataSource, []string{"001_broken.up.sql"}, asset, DataSourceOptions{MaxOpenConns: 1})
	assert.Error(t, err)
}
