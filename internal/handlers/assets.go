package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/pkg/utils"
)

type AssetsHandler struct {
	Sessions *editor.Registry
}

func NewAssetsHandler(sessions *editor.Registry) *AssetsHandler {
	return &AssetsHandler{Sessions: sessions}
}

// List returns one catalogue page. Pages are zero based; page 0 carries the
// default slot.
func (h *AssetsHandler) List(c *fiber.Ctx) error {
	category, ok := assets.ParseCategory(c.Params("category"))
	if !ok {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "unknown asset category")
	}
	page := c.QueryInt("page", 0)
	size := c.QueryInt("size", 0)
	if page < 0 || size < 0 {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "page and size must not be negative")
	}

	_, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	listing, err := session.Resolve(c.UserContext(), category, page, size)
	if err != nil {
		return respondError(c, err, "failed loading assets")
	}
	return utils.Success(c, fiber.StatusOK, listing)
}

type applyAssetRequest struct {
	AssetID string `json:"assetId"`
}

// Apply selects an asset for the category. An empty assetId restores the
// category default.
func (h *AssetsHandler) Apply(c *fiber.Ctx) error {
	category, ok := assets.ParseCategory(c.Params("category"))
	if !ok {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "unknown asset category")
	}
	var req applyAssetRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	_, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	frame, err := session.ApplyAsset(c.UserContext(), category, strings.TrimSpace(req.AssetID))
	if err != nil {
		return respondError(c, err, "failed applying asset")
	}
	return utils.Success(c, fiber.StatusOK, frame)
}
