package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/pkg/utils"
)

type TemplatesHandler struct {
	Templates *services.TemplateService
	Sessions  *editor.Registry
	Audit     *services.AuditService
}

func NewTemplatesHandler(templates *services.TemplateService, sessions *editor.Registry, audit *services.AuditService) *TemplatesHandler {
	return &TemplatesHandler{Templates: templates, Sessions: sessions, Audit: audit}
}

type createTemplateRequest struct {
	Name string `json:"name"`
}

// Create saves the editor's current look under a name.
func (h *TemplatesHandler) Create(c *fiber.Ctx) error {
	var req createTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	user, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	tmpl, err := session.SaveTemplate(c.UserContext(), req.Name)
	if err != nil {
		return respondError(c, err, "failed saving template")
	}
	recordAudit(h.Audit, c, user, services.AuditTemplateCreate, "template", tmpl.ID, map[string]interface{}{"name": tmpl.Name})
	return utils.Success(c, fiber.StatusCreated, tmpl)
}

func (h *TemplatesHandler) List(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	pagination := utils.ParsePagination(c)
	items, total, err := h.Templates.List(c.UserContext(), user.ID, pagination.Offset, pagination.Limit)
	if err != nil {
		return respondError(c, err, "failed listing templates")
	}
	return utils.Paginated(c, items, pagination.Page, pagination.Limit, total)
}

// Apply loads a template into the editor. Nothing is saved until the user
// saves the profile.
func (h *TemplatesHandler) Apply(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid template id")
	}
	_, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	if _, err := session.LoadTemplate(c.UserContext(), id.String()); err != nil {
		return respondError(c, err, "failed applying template")
	}
	return utils.Success(c, fiber.StatusOK, session.Preview())
}

func (h *TemplatesHandler) Delete(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid template id")
	}
	if err := h.Templates.Delete(c.UserContext(), user.ID, id); err != nil {
		return respondError(c, err, "failed deleting template")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"deleted": id})
}
