package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/metrics"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/pkg/utils"
)

// UploadsHandler manages the vault through the editor session, so quota
// counts and cached listings stay in step with what the editor shows.
type UploadsHandler struct {
	Uploads  *services.UploadService
	Sessions *editor.Registry
	Audit    *services.AuditService
}

func NewUploadsHandler(uploads *services.UploadService, sessions *editor.Registry, audit *services.AuditService) *UploadsHandler {
	return &UploadsHandler{Uploads: uploads, Sessions: sessions, Audit: audit}
}

func (h *UploadsHandler) List(c *fiber.Ctx) error {
	user, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	items, err := h.Uploads.ListVault(c.UserContext(), user.ID.String())
	if err != nil {
		return respondError(c, err, "failed listing uploads")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"items": items, "stats": session.Stats()})
}

func (h *UploadsHandler) Stats(c *fiber.Ctx) error {
	user, _, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	stats, err := h.Uploads.Stats(c.UserContext(), user.ID.String())
	if err != nil {
		return respondError(c, err, "failed loading upload stats")
	}
	return utils.Success(c, fiber.StatusOK, stats)
}

// Create accepts a multipart form with file, category and an optional
// name.
func (h *UploadsHandler) Create(c *fiber.Ctx) error {
	user, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}

	vaultType, ok := assets.ParseVaultType(c.FormValue("category"))
	if !ok {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "category must be one of image, video, audio, cursor")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "failed reading file")
	}
	defer file.Close()

	item, err := session.Upload(c.UserContext(), editor.Upload{
		Name:        strings.TrimSpace(c.FormValue("name")),
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Type:        vaultType,
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		return respondError(c, err, "failed storing upload")
	}
	metrics.UploadBytesTotal.Add(float64(fileHeader.Size))

	recordAudit(h.Audit, c, user, services.AuditUploadCreate, "vault_item", item.ID, map[string]interface{}{
		"type": string(item.Type),
		"size": fileHeader.Size,
	})
	return utils.Success(c, fiber.StatusCreated, fiber.Map{"item": item, "stats": session.Stats()})
}

func (h *UploadsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid upload id")
	}
	user, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	if err := session.DeleteUpload(c.UserContext(), id.String()); err != nil {
		return respondError(c, err, "failed deleting upload")
	}
	recordAudit(h.Audit, c, user, services.AuditUploadDelete, "vault_item", id.String(), nil)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": 1, "stats": session.Stats()})
}

type deleteBatchRequest struct {
	IDs []string `json:"ids"`
}

func (h *UploadsHandler) DeleteBatch(c *fiber.Ctx) error {
	var req deleteBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "ids are required")
	}
	user, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	deleted, err := session.DeleteUploads(c.UserContext(), req.IDs)
	if err != nil {
		return respondError(c, err, "failed deleting uploads")
	}
	recordAudit(h.Audit, c, user, services.AuditUploadDelete, "vault_item", "", map[string]interface{}{
		"requested": len(req.IDs),
		"deleted":   deleted,
	})
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": deleted, "stats": session.Stats()})
}

// Media redirects to a short-lived signed URL for a vault item. It is
// public because published profiles reference vault media.
func (h *UploadsHandler) Media(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid media id")
	}
	url, err := h.Uploads.MediaURL(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "failed loading media")
	}
	return c.Redirect(url, fiber.StatusFound)
}
