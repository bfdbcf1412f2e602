package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/database"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/theme"
	"github.com/persona/backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrLinkLimit       = errors.New("link limit reached for your plan")
	ErrInvalidLink     = errors.New("link needs a title and an http(s) url")
	ErrUnknownBadge    = errors.New("displayed badge is not owned")
)

// ProfileService stores profiles. The theme column keeps whatever was
// written; reads always normalize it.
type ProfileService struct {
	DB     *gorm.DB
	Limits config.LimitsConfig
}

func NewProfileService(db *gorm.DB, limits config.LimitsConfig) *ProfileService {
	return &ProfileService{DB: db, Limits: limits}
}

// Load returns the user and their profile, creating an empty profile on
// first access.
func (s *ProfileService) Load(ctx context.Context, userID uuid.UUID) (*models.User, *models.Profile, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProfileNotFound
		}
		return nil, nil, err
	}

	profile := models.Profile{UserID: userID}
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Attrs(models.Profile{Theme: database.DefaultThemeJSON()}).
		FirstOrCreate(&profile).Error; err != nil {
		return nil, nil, err
	}
	return &user, &profile, nil
}

func (s *ProfileService) FindByUsername(ctx context.Context, username string) (*models.User, *models.Profile, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return s.Load(ctx, user.ID)
}

// ThemeOf is the normalized theme of a stored profile.
func ThemeOf(profile *models.Profile) theme.Config {
	return theme.Normalize(profile.Theme, profile.Frame)
}

func (s *ProfileService) Read(ctx context.Context, userID string) (editor.ProfileBundle, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return editor.ProfileBundle{}, err
	}
	user, profile, err := s.Load(ctx, uid)
	if err != nil {
		return editor.ProfileBundle{}, err
	}
	return editor.ProfileBundle{
		UserID:    user.ID.String(),
		Username:  user.Username,
		Premium:   user.Premium,
		IsAdmin:   user.IsAdmin(),
		AvatarURL: user.AvatarURL,
		Theme:     ThemeOf(profile),
	}, nil
}

// Write applies a partial update in one transaction. A presence-only patch
// merges into the stored theme so unsaved editor changes stay unsaved.
func (s *ProfileService) Write(ctx context.Context, userID string, patch editor.PartialProfile) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return err
	}
	if _, _, err := s.Load(ctx, uid); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.Where("user_id = ?", uid).First(&profile).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if patch.Theme != nil || patch.Presence != nil {
			next := ThemeOf(&profile)
			if patch.Theme != nil {
				next = patch.Theme.Clone()
			}
			if patch.Presence != nil {
				next.Presence = *patch.Presence
				next.Presence.NetworkServers = append([]theme.NetworkServer{}, patch.Presence.NetworkServers...)
			}
			data, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("encoding theme: %w", err)
			}
			updates["theme"] = data
		}
		if patch.Frame != nil {
			if *patch.Frame == "" {
				updates["frame"] = nil
			} else {
				updates["frame"] = *patch.Frame
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&profile).Updates(updates).Error; err != nil {
				return err
			}
		}

		if patch.AvatarURL != nil {
			if err := tx.Model(&models.User{}).Where("id = ?", uid).Update("avatar_url", *patch.AvatarURL).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

type ProfileDetails struct {
	DisplayName     *string                 `json:"displayName"`
	Bio             *string                 `json:"bio"`
	Links           *[]models.ProfileLink   `json:"links"`
	Socials         *[]models.ProfileSocial `json:"socials"`
	DisplayedBadges *[]string               `json:"displayedBadges"`
	NSFW            *bool                   `json:"nsfw"`
}

func validLinkURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

func (s *ProfileService) LinkLimit(premium bool) int {
	if premium {
		return s.Limits.PremiumLinks
	}
	return s.Limits.FreeLinks
}

// UpdateDetails changes the non-theme parts of a profile.
func (s *ProfileService) UpdateDetails(ctx context.Context, userID uuid.UUID, details ProfileDetails) (*models.Profile, error) {
	user, profile, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if details.Links != nil {
		links := *details.Links
		if limit := s.LinkLimit(user.Premium); limit > 0 && len(links) > limit {
			return nil, fmt.Errorf("%w (%d)", ErrLinkLimit, limit)
		}
		for _, link := range links {
			if strings.TrimSpace(link.Title) == "" || !validLinkURL(link.URL) {
				return nil, ErrInvalidLink
			}
		}
		profile.Links = links
	}
	if details.Socials != nil {
		for _, social := range *details.Socials {
			if strings.TrimSpace(social.Platform) == "" || !validLinkURL(social.URL) {
				return nil, ErrInvalidLink
			}
		}
		profile.Socials = *details.Socials
	}
	if details.DisplayedBadges != nil {
		owned := make(map[string]bool, len(profile.Badges))
		for _, badge := range profile.Badges {
			owned[badge.ID] = true
		}
		for _, id := range *details.DisplayedBadges {
			if !owned[id] {
				return nil, fmt.Errorf("%w: %s", ErrUnknownBadge, id)
			}
		}
		profile.DisplayedBadges = *details.DisplayedBadges
	}
	if details.Bio != nil {
		profile.Bio = strings.TrimSpace(*details.Bio)
	}
	if details.NSFW != nil {
		profile.NSFW = *details.NSFW
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(profile).Error; err != nil {
			return err
		}
		if details.DisplayName != nil {
			return tx.Model(user).Update("display_name", strings.TrimSpace(*details.DisplayName)).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoWithUser(userID.String(), "profile_details_updated", map[string]interface{}{
		"links":   len(profile.Links),
		"socials": len(profile.Socials),
	})
	return profile, nil
}

// IncrementViews bumps the view counter and returns the new count.
func (s *ProfileService) IncrementViews(ctx context.Context, profileID uuid.UUID) (int64, error) {
	if err := s.DB.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profileID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error; err != nil {
		return 0, err
	}
	var views int64
	err := s.DB.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", profileID).Pluck("views", &views).Error
	return views, err
}
