package database

import (
	"encoding/json"
	"fmt"

	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/theme"
	"github.com/persona/backend/pkg/logger"
	"github.com/persona/backend/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := addConstraints(db); err != nil {
		return nil, err
	}
	if err := Seed(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table. It runs on any gorm dialect.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

// Seed inserts the admin account and the store catalogue when missing.
func Seed(db *gorm.DB) error {
	if err := seedAdminUser(db); err != nil {
		return err
	}
	return SeedStoreCatalogue(db)
}

func addConstraints(db *gorm.DB) error {
	constraint := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1
    FROM pg_constraint
    WHERE conname = 'profile_views_nonnegative'
  ) THEN
    ALTER TABLE profiles
    ADD CONSTRAINT profile_views_nonnegative
    CHECK (views >= 0);
  END IF;
END $$;`

	return db.Exec(constraint).Error
}

// DefaultThemeJSON is the stored form of a fresh profile theme.
func DefaultThemeJSON() []byte {
	data, err := json.Marshal(theme.Default())
	if err != nil {
		return []byte("{}")
	}
	return data
}

func seedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("admin123")
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := models.User{
			Username:     "admin",
			Email:        "admin@persona.local",
			PasswordHash: hash,
			DisplayName:  "Admin",
			Role:         models.UserRoleAdmin,
			Premium:      true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}
		logger.Info("admin_user_seeded", map[string]interface{}{"username": admin.Username})
		return tx.Create(&models.Profile{UserID: admin.ID, Theme: DefaultThemeJSON()}).Error
	})
}

var storeCatalogue = []models.StoreItem{
	{Slug: "halo", Name: "Halo", Category: "frame", Rarity: "rare", Price: 300, ImageURL: "/static/store/frames/halo.png"},
	{Slug: "thorns", Name: "Thorns", Category: "frame", Rarity: "epic", Price: 600, ImageURL: "/static/store/frames/thorns.png"},
	{Slug: "solar-flare", Name: "Solar Flare", Category: "frame", Rarity: "legendary", Price: 1200, ImageURL: "/static/store/frames/solar-flare.png"},
	{Slug: "pixel-rain", Name: "Pixel Rain", Category: "background", Rarity: "uncommon", Price: 200, ImageURL: "/static/store/backgrounds/pixel-rain.mp4"},
	{Slug: "nebula", Name: "Nebula", Category: "background", Rarity: "rare", Price: 400, ImageURL: "/static/store/backgrounds/nebula.jpg"},
	{Slug: "lofi-loop", Name: "Lo-fi Loop", Category: "audio", Rarity: "common", Price: 100, ImageURL: "/static/store/audio/lofi-loop.mp3"},
	{Slug: "crosshair", Name: "Crosshair", Category: "cursor", Rarity: "common", Price: 50, ImageURL: "/static/store/cursors/crosshair.png"},
	{Slug: "ghost", Name: "Ghost", Category: "avatar", Rarity: "uncommon", Price: 150, ImageURL: "/static/store/avatars/ghost.png"},
}

// SeedStoreCatalogue inserts curated store items that do not exist yet.
func SeedStoreCatalogue(db *gorm.DB) error {
	items := make([]models.StoreItem, len(storeCatalogue))
	copy(items, storeCatalogue)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(&items).Error
}
