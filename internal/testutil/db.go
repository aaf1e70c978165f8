// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/org-task-api/internal/database"
	"github.com/yukikurage/org-task-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated sqlite database in a temp dir. Transactions start
// with BEGIN IMMEDIATE so concurrent writers queue behind the busy timeout.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), database.NewConfig(logger.Silent))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// CreateOrganization inserts an active organization.
func CreateOrganization(t *testing.T, db *gorm.DB, name, slug, inviteCode string) *models.Organization {
	t.Helper()

	org := &models.Organization{
		Name:       name,
		Slug:       slug,
		InviteCode: inviteCode,
		IsActive:   true,
		Settings: models.OrganizationSettings{
			Theme:    models.ThemeLight,
			Timezone: models.DefaultTimezone,
		},
	}
	require.NoError(t, db.Create(org).Error)
	return org
}

// CreateUser inserts a user with the given role. The password hash is a
// placeholder; tests that log in set their own.
func CreateUser(t *testing.T, db *gorm.DB, orgID uint64, email string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Email:          email,
		PasswordHash:   "not-a-real-hash",
		FirstName:      "Test",
		LastName:       "User",
		OrganizationID: orgID,
		Role:           role,
	}
	require.NoError(t, db.Omit("Organization").Create(user).Error)
	return user
}

// CreateTask inserts a todo task created by creatorID.
func CreateTask(t *testing.T, db *gorm.DB, orgID, creatorID uint64, title string, assignee *uint64) *models.Task {
	t.Helper()

	task := &models.Task{
		OrganizationID: orgID,
		Title:          title,
		Category:       models.TaskCategoryBug,
		Priority:       models.TaskPriorityMedium,
		Status:         models.TaskStatusTodo,
		AssignedToID:   assignee,
		CreatedByID:    creatorID,
	}
	require.NoError(t, db.Omit("Organization", "Creator", "Assignee").Create(task).Error)
	return task
}
