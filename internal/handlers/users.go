package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/pkg/logger"
	"github.com/persona/backend/pkg/utils"
	"gorm.io/gorm"
)

// UsersHandler is the admin view of accounts. Plan changes take effect on
// the user's next editor session.
type UsersHandler struct {
	DB       *gorm.DB
	Sessions *editor.Registry
	Audit    *services.AuditService
}

func NewUsersHandler(db *gorm.DB, sessions *editor.Registry, audit *services.AuditService) *UsersHandler {
	return &UsersHandler{DB: db, Sessions: sessions, Audit: audit}
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)
	search := strings.TrimSpace(c.Query("search"))

	query := h.DB.Model(&models.User{})
	if search != "" {
		searchValue := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", searchValue, searchValue)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	return utils.Paginated(c, users, p.Page, p.Limit, total)
}

type updateUserRequest struct {
	Premium *bool            `json:"premium"`
	Role    *models.UserRole `json:"role"`
}

func (h *UsersHandler) Update(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req updateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Premium != nil {
		updates["premium"] = *req.Premium
	}
	if req.Role != nil {
		if *req.Role != models.UserRoleAdmin && *req.Role != models.UserRoleUser {
			return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "invalid role")
		}
		updates["role"] = *req.Role
	}
	if len(updates) == 0 {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "nothing to update")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed fetching user")
	}
	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating user")
	}
	h.Sessions.Drop(user.ID.String())

	admin := middleware.GetCurrentUser(c)
	logger.InfoWithUser(admin.ID.String(), "user_updated", map[string]interface{}{
		"target_user_id": user.ID.String(),
		"updates":        updates,
	})
	recordAudit(h.Audit, c, admin, services.AuditUserUpdate, "user", user.ID.String(), updates)

	return utils.Success(c, fiber.StatusOK, user)
}
