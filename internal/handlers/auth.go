package handlers

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/database"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/pkg/logger"
	"github.com/persona/backend/pkg/utils"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{3,32}$`)

type AuthHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewAuthHandler(db *gorm.DB, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{DB: db, Audit: audit}
}

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	if !usernamePattern.MatchString(req.Username) {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "username must be 3-32 characters of a-z, 0-9, '.', '_' or '-'")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "invalid email")
	}
	if len(req.Password) < 8 {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "password must be at least 8 characters")
	}

	var existing int64
	if err := h.DB.Model(&models.User{}).
		Where("email = ? OR LOWER(username) = ?", req.Email, req.Username).
		Count(&existing).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing user")
	}
	if existing > 0 {
		return utils.ErrorCode(c, fiber.StatusConflict, utils.CodeConflict, "username or email already registered")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		Role:         models.UserRoleUser,
	}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Profile{UserID: user.ID, Theme: database.DefaultThemeJSON()}).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id":  user.ID.String(),
		"username": user.Username,
	})
	recordAudit(h.Audit, c, &user, services.AuditUserRegister, "user", user.ID.String(), map[string]interface{}{
		"username": user.Username,
	})

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"token": token, "user": user})
}

// loginRequest accepts either an email or a username in Login.
type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Login = strings.ToLower(strings.TrimSpace(req.Login))

	if req.Login == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "login and password are required")
	}

	var user models.User
	err := h.DB.Where("email = ? OR LOWER(username) = ?", req.Login, req.Login).First(&user).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
		}
		logger.Warn("login_failed_user_not_found", map[string]interface{}{
			"login": req.Login,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		logger.Warn("login_failed_invalid_password", map[string]interface{}{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	logger.Info("user_login", map[string]interface{}{
		"user_id": user.ID.String(),
		"ip":      c.IP(),
	})
	recordAudit(h.Audit, c, &user, services.AuditUserLogin, "user", user.ID.String(), nil)

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, user)
}
