package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/skirmish/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "6543")
	viper.Set("db.username", "rec")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "skirmish")

	assert.Equal(t, "host=db.internal port=6543 user=rec password=pw dbname=skirmish sslmode=disable", PostgresDSN())
}

func TestOpenSqliteAndMigrate(t *testing.T) {
	db, err := OpenSqlite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	require.NoError(t, Migrate(db, zerolog.Nop()))
	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestDumpToDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := OpenSqlite(filepath.Join(dir, "live.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db, zerolog.Nop()))

	out := filepath.Join(dir, "dump.db")
	require.NoError(t, DumpToDisk(db, out))
	_, err = os.Stat(out)
	require.NoError(t, err)

	// a second dump replaces the first
	require.NoError(t, DumpToDisk(db, out))

	assert.Error(t, DumpToDisk(db, ""))
}

func TestManager_DumpMemoryToDisk(t *testing.T) {
	dir := t.TempDir()
	db, err := OpenSqlite(filepath.Join(dir, "live.db"))
	require.NoError(t, err)

	m := NewManager(zerolog.Nop())
	m.DB = db
	require.NoError(t, m.Setup())

	assert.Error(t, m.DumpMemoryToDisk())

	m.SqliteFilePath = filepath.Join(dir, "backup.db")
	require.NoError(t, m.DumpMemoryToDisk())
}

func TestBackupPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.db", "b.db", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	paths, err := BackupPaths(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "a.db"), filepath.Join(dir, "b.db")}, paths)

	_, err = BackupPaths(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
