package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/pkg/logger"
	"github.com/persona/backend/pkg/utils"
)

// PlatformHandler links the user's chat platform account. The callback is
// reached by browser redirect, so the user comes from the sealed state
// rather than a bearer token.
type PlatformHandler struct {
	Platform    *services.PlatformLinkService
	Sessions    *editor.Registry
	Audit       *services.AuditService
	FrontendURL string
}

func NewPlatformHandler(platform *services.PlatformLinkService, sessions *editor.Registry, audit *services.AuditService, frontendURL string) *PlatformHandler {
	return &PlatformHandler{Platform: platform, Sessions: sessions, Audit: audit, FrontendURL: frontendURL}
}

func (h *PlatformHandler) LinkURL(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	state, err := h.Platform.GenerateState(user.ID)
	if err != nil {
		return respondError(c, err, "failed generating link state")
	}
	sealed, err := h.Platform.SealState(state)
	if err != nil {
		return respondError(c, err, "failed generating link state")
	}
	authURL, err := h.Platform.AuthURL(sealed)
	if err != nil {
		return respondError(c, err, "failed building link url")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"url": authURL})
}

func (h *PlatformHandler) redirect(c *fiber.Ctx, query string) error {
	return c.Redirect(h.FrontendURL + "/editor?" + query)
}

func (h *PlatformHandler) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return h.redirect(c, "platform_error="+url.QueryEscape("authorization code is required"))
	}
	state, err := h.Platform.OpenState(c.Query("state"))
	if err != nil {
		logger.Warn("platform_link_invalid_state", map[string]interface{}{"ip": c.IP()})
		return h.redirect(c, "platform_error="+url.QueryEscape(err.Error()))
	}

	account, err := h.Platform.Link(c.UserContext(), state.UserID, code)
	if err != nil {
		return h.redirect(c, "platform_error="+url.QueryEscape(err.Error()))
	}
	if session, ok := h.Sessions.Peek(state.UserID.String()); ok {
		session.InvalidatePlatform(c.UserContext())
	}

	if h.Audit != nil {
		h.Audit.LogAsync(services.AuditEntry{
			UserID:       &state.UserID,
			Action:       services.AuditPlatformLink,
			ResourceType: "linked_account",
			ResourceID:   account.ExternalID,
			IPAddress:    c.IP(),
			RequestID:    getRequestID(c),
		})
	}
	return h.redirect(c, "platform_linked=true")
}

func (h *PlatformHandler) Unlink(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if err := h.Platform.Unlink(c.UserContext(), user.ID); err != nil {
		return respondError(c, err, "failed unlinking account")
	}
	if session, ok := h.Sessions.Peek(user.ID.String()); ok {
		session.InvalidatePlatform(c.UserContext())
	}
	recordAudit(h.Audit, c, user, services.AuditPlatformUnlink, "linked_account", "", nil)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"linked": false})
}
