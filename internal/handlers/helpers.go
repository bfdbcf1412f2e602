package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/presence"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/internal/theme"
	"github.com/persona/backend/pkg/logger"
	"github.com/persona/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func getRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestID").(string); ok {
		return id
	}
	return ""
}

// sessionFor returns the caller's editor session, opening it on first use.
func sessionFor(c *fiber.Ctx, sessions *editor.Registry) (*models.User, *editor.Session, error) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return nil, nil, errUnauthorized
	}
	session, err := sessions.Get(c.UserContext(), user.ID.String())
	if err != nil {
		return user, nil, err
	}
	return user, session, nil
}

var errUnauthorized = errors.New("unauthorized")

var (
	validationErrors = []error{
		theme.ErrUnknownPath,
		theme.ErrInvalidValue,
		theme.ErrReservedPath,
		presence.ErrEmptyInvite,
		editor.ErrUnknownAsset,
		editor.ErrInvalidTab,
		services.ErrInvalidLink,
		services.ErrUnknownBadge,
		services.ErrTemplateName,
		services.ErrUnsupportedMedia,
		services.ErrInvalidState,
	}
	capacityErrors = []error{
		editor.ErrUploadLimit,
		presence.ErrCapacity,
		services.ErrLinkLimit,
		services.ErrTemplateLimit,
	}
	notFoundErrors = []error{
		services.ErrProfileNotFound,
		services.ErrUploadNotFound,
		services.ErrTemplateNotFound,
		services.ErrStoreItemNotFound,
		services.ErrPlatformNotLinked,
		presence.ErrNotLinked,
	}
	conflictErrors = []error{
		services.ErrAlreadyOwned,
		editor.ErrSaveSuperseded,
		presence.ErrSuperseded,
	}
)

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps domain errors onto status codes. Anything unknown is
// logged and answered with fallback.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	var lookupErr *presence.LookupError
	switch {
	case errors.Is(err, errUnauthorized):
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	case errors.As(err, &lookupErr):
		status := fiber.StatusFailedDependency
		if lookupErr.NotFound {
			status = fiber.StatusNotFound
		}
		return utils.ErrorCode(c, status, utils.CodeLookup, lookupErr.Message)
	case errors.Is(err, services.ErrUploadTooLarge):
		return utils.ErrorCode(c, fiber.StatusRequestEntityTooLarge, utils.CodeValidation, err.Error())
	case matchesAny(err, validationErrors):
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error())
	case matchesAny(err, capacityErrors):
		return utils.ErrorCode(c, fiber.StatusConflict, utils.CodeCapacity, err.Error())
	case matchesAny(err, notFoundErrors):
		return utils.Error(c, fiber.StatusNotFound, err.Error())
	case matchesAny(err, conflictErrors):
		return utils.ErrorCode(c, fiber.StatusConflict, utils.CodeConflict, err.Error())
	case errors.Is(err, services.ErrDirectoryUnavailable):
		return utils.ErrorCode(c, fiber.StatusBadGateway, utils.CodeTransient, err.Error())
	case errors.Is(err, services.ErrPlatformDisabled):
		return utils.Error(c, fiber.StatusServiceUnavailable, err.Error())
	}

	details := map[string]interface{}{"path": c.Path(), "request_id": getRequestID(c)}
	if userID := logger.GetUserIDFromContext(c); userID != nil {
		logger.ErrorWithUser(*userID, "request_failed", err, details)
	} else {
		logger.Error("request_failed", err, details)
	}
	return utils.Error(c, fiber.StatusInternalServerError, fallback)
}

// recordAudit queues an audit row for the request. A nil service is a no-op.
func recordAudit(audit *services.AuditService, c *fiber.Ctx, user *models.User, action, resourceType, resourceID string, details map[string]interface{}) {
	if audit == nil {
		return
	}
	entry := services.AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    c.IP(),
		RequestID:    getRequestID(c),
	}
	if user != nil {
		entry.UserID = &user.ID
	}
	audit.LogAsync(entry)
}
