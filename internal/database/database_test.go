package database

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/theme"
	"github.com/stretchr/testify/assert"
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
	require.NoError(t, Migrate(db))
	return db
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Seed(db))
	require.NoError(t, Seed(db))

	var admins int64
	require.NoError(t, db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&admins).Error)
	assert.Equal(t, int64(1), admins)

	var items int64
	require.NoError(t, db.Model(&models.StoreItem{}).Count(&items).Error)
	assert.Equal(t, int64(len(storeCatalogue)), items)

	var admin models.User
	require.NoError(t, db.Preload("Profile").Where("username = ?", "admin").First(&admin).Error)
	require.NotNil(t, admin.Profile)
	assert.Equal(t, theme.Default(), theme.Normalize(admin.Profile.Theme, nil))
}

func TestDefaultThemeJSONNormalizesToDefault(t *testing.T) {
	assert.Equal(t, theme.Default(), theme.Normalize(DefaultThemeJSON(), nil))
}
