package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-task-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), NewConfig(logger.Silent))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestMigrate(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, Migrate(db))
	// Running twice must be a no-op.
	require.NoError(t, Migrate(db))

	migrator := db.Migrator()
	for _, idx := range compositeIndexes {
		assert.True(t, migrator.HasIndex(idx.table, idx.name), idx.name)
	}
	assert.True(t, migrator.HasIndex(&models.User{}, "Email"))
	assert.True(t, migrator.HasIndex(&models.Organization{}, "Slug"))
	assert.True(t, migrator.HasIndex(&models.Organization{}, "InviteCode"))
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(logger.Warn)
	assert.True(t, cfg.TranslateError)
	assert.True(t, cfg.DisableForeignKeyConstraintWhenMigrating)
}
