package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/persona/backend/internal/database"
	"github.com/persona/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedStoreCatalogue(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, premium bool) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         models.UserRoleUser,
		Premium:      premium,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func makeAdmin(t *testing.T, db *gorm.DB, id uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", id).Update("role", models.UserRoleAdmin).Error)
}
