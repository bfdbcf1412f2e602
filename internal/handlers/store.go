package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/pkg/utils"
)

type StoreHandler struct {
	Store    *services.StoreService
	Sessions *editor.Registry
	Audit    *services.AuditService
}

func NewStoreHandler(store *services.StoreService, sessions *editor.Registry, audit *services.AuditService) *StoreHandler {
	return &StoreHandler{Store: store, Sessions: sessions, Audit: audit}
}

func (h *StoreHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	category := strings.TrimSpace(c.Query("category"))
	if category != "" {
		if _, ok := assets.ParseCategory(category); !ok {
			return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "unknown asset category")
		}
	}
	items, err := h.Store.Catalogue(c.UserContext(), user.ID, strings.ToLower(category))
	if err != nil {
		return respondError(c, err, "failed loading store")
	}
	return utils.Success(c, fiber.StatusOK, items)
}

// Purchase marks the item owned and refreshes the editor's store listings.
func (h *StoreHandler) Purchase(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	item, err := h.Store.Purchase(c.UserContext(), user.ID, strings.TrimSpace(c.Params("id")))
	if err != nil {
		return respondError(c, err, "failed purchasing item")
	}
	if session, ok := h.Sessions.Peek(user.ID.String()); ok {
		session.InvalidateStore(c.UserContext())
	}

	recordAudit(h.Audit, c, user, services.AuditStorePurchase, "store_item", item.ID, map[string]interface{}{
		"category": string(item.Type),
	})
	return utils.Success(c, fiber.StatusCreated, item)
}
