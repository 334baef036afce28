package accesslog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteCreatesDirectoryAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database", "access_log.db")

	store, err := OpenSQLite(context.Background(), path)
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, path)
	assert.Equal(t, uint(2), store.SchemaVersion())

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenSQLiteIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_log.db")
	ctx := context.Background()

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Insert(ctx, Entry{PackageName: "left-pad", Version: "1.3.0"}))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err, "重复迁移应是幂等的")
	defer second.Close()

	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "重新打开不应丢失已有记录")
}

func TestInsertPersistsColumns(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "access_log.db"))
	require.NoError(t, err)
	defer store.Close()

	at := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Insert(ctx, Entry{PackageName: "@scope/pkg", Version: "2.0.0", AccessTime: at}))

	var name, version string
	row := store.db.QueryRowContext(ctx, `SELECT packageName, version FROM AccessLogs`)
	require.NoError(t, row.Scan(&name, &version))
	assert.Equal(t, "@scope/pkg", name)
	assert.Equal(t, "2.0.0", version)
}

func TestInsertAfterCloseIsPersistenceError(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "access_log.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Insert(ctx, Entry{PackageName: "pkg", Version: "1.0.0"})
	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, "pkg", persistErr.Entry.PackageName)
}
