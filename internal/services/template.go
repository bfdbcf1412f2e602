package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/theme"
	"gorm.io/gorm"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateLimit    = errors.New("template limit reached")
	ErrTemplateName     = errors.New("template name is required")
)

type TemplateService struct {
	DB    *gorm.DB
	Limit int
}

func NewTemplateService(db *gorm.DB, limit int) *TemplateService {
	return &TemplateService{DB: db, Limit: limit}
}

func toTemplate(row models.Template) editor.Template {
	return editor.Template{
		ID:        row.ID.String(),
		Name:      row.Name,
		Config:    theme.Normalize(row.Config, nil),
		CreatedAt: row.CreatedAt,
	}
}

func (s *TemplateService) Save(ctx context.Context, userID, name string, cfg theme.Config) (editor.Template, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return editor.Template{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return editor.Template{}, ErrTemplateName
	}

	if s.Limit > 0 {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Template{}).Where("user_id = ?", uid).Count(&count).Error; err != nil {
			return editor.Template{}, err
		}
		if count >= int64(s.Limit) {
			return editor.Template{}, ErrTemplateLimit
		}
	}

	// Linked servers belong to the profile, not to a look.
	cfg = cfg.Clone()
	cfg.Presence = theme.Default().Presence

	data, err := json.Marshal(cfg)
	if err != nil {
		return editor.Template{}, err
	}
	row := models.Template{UserID: uid, Name: name, Config: data}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return editor.Template{}, err
	}
	return toTemplate(row), nil
}

func (s *TemplateService) Get(ctx context.Context, userID, id string) (editor.Template, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return editor.Template{}, err
	}
	tid, err := uuid.Parse(id)
	if err != nil {
		return editor.Template{}, ErrTemplateNotFound
	}
	var row models.Template
	if err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", tid, uid).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return editor.Template{}, ErrTemplateNotFound
		}
		return editor.Template{}, err
	}
	return toTemplate(row), nil
}

func (s *TemplateService) List(ctx context.Context, userID uuid.UUID, offset, limit int) ([]editor.Template, int64, error) {
	query := s.DB.WithContext(ctx).Model(&models.Template{}).Where("user_id = ?", userID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Template
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]editor.Template, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTemplate(row))
	}
	return out, total, nil
}

func (s *TemplateService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Template{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
