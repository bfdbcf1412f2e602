package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/internal/theme"
	"github.com/persona/backend/pkg/utils"
)

// PresenceHandler links servers to the profile. Every change here is
// persisted at once, unlike theme edits which wait for a save.
type PresenceHandler struct {
	Sessions *editor.Registry
	Audit    *services.AuditService
}

func NewPresenceHandler(sessions *editor.Registry, audit *services.AuditService) *PresenceHandler {
	return &PresenceHandler{Sessions: sessions, Audit: audit}
}

type presenceResponse struct {
	Presence theme.Presence    `json:"presence"`
	States   map[string]string `json:"states"`
	Limit    int               `json:"limit"`
}

func presenceView(session *editor.Session, cfg theme.Config) presenceResponse {
	states := make(map[string]string, len(cfg.Presence.NetworkServers))
	for _, server := range cfg.Presence.NetworkServers {
		states[server.ID] = string(session.PresenceState(server.ID))
	}
	return presenceResponse{Presence: cfg.Presence, States: states, Limit: session.PresenceLimit()}
}

func (h *PresenceHandler) Get(c *fiber.Ctx) error {
	_, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	return utils.Success(c, fiber.StatusOK, presenceView(session, session.Snapshot()))
}

type verifyServerRequest struct {
	Invite string `json:"invite"`
}

func (h *PresenceHandler) Verify(c *fiber.Ctx) error {
	var req verifyServerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	user, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	cfg, err := session.Verify(c.UserContext(), req.Invite)
	if err != nil {
		return respondError(c, err, "failed verifying server")
	}
	recordAudit(h.Audit, c, user, services.AuditPresenceLink, "server", cfg.Presence.ServerID, nil)
	return utils.Success(c, fiber.StatusOK, presenceView(session, cfg))
}

func (h *PresenceHandler) Unlink(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	user, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	cfg, err := session.Unlink(c.UserContext(), &id)
	if err != nil {
		return respondError(c, err, "failed unlinking server")
	}
	recordAudit(h.Audit, c, user, services.AuditPresenceUnlink, "server", id, nil)
	return utils.Success(c, fiber.StatusOK, presenceView(session, cfg))
}

// Reset turns the presence widget off without forgetting linked servers.
func (h *PresenceHandler) Reset(c *fiber.Ctx) error {
	user, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	cfg, err := session.Unlink(c.UserContext(), nil)
	if err != nil {
		return respondError(c, err, "failed resetting presence")
	}
	recordAudit(h.Audit, c, user, services.AuditPresenceUnlink, "server", "", map[string]interface{}{"reset": true})
	return utils.Success(c, fiber.StatusOK, presenceView(session, cfg))
}

func (h *PresenceHandler) SetActive(c *fiber.Ctx) error {
	_, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	cfg, err := session.SetActive(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "failed activating server")
	}
	return utils.Success(c, fiber.StatusOK, presenceView(session, cfg))
}
