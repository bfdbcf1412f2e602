package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/metrics"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/internal/theme"
	"github.com/persona/backend/pkg/utils"
)

// ProfileHandler serves the signed-in user's profile and the editor
// session working on it.
type ProfileHandler struct {
	Profiles *services.ProfileService
	Sessions *editor.Registry
	Audit    *services.AuditService
}

func NewProfileHandler(profiles *services.ProfileService, sessions *editor.Registry, audit *services.AuditService) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles, Sessions: sessions, Audit: audit}
}

// Get returns the stored profile. Unsaved editor changes are only visible
// through Preview.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	bundle, err := h.Profiles.Read(c.UserContext(), user.ID.String())
	if err != nil {
		return respondError(c, err, "failed loading profile")
	}
	_, profile, err := h.Profiles.Load(c.UserContext(), user.ID)
	if err != nil {
		return respondError(c, err, "failed loading profile")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"profile":   bundle,
		"details":   profile,
		"linkLimit": h.Profiles.LinkLimit(user.Premium),
	})
}

// updateProfileRequest keeps the theme raw so missing keys fall back to
// defaults instead of zero values.
type updateProfileRequest struct {
	Theme     json.RawMessage `json:"theme"`
	Frame     *string         `json:"frame"`
	AvatarURL *string         `json:"avatarUrl"`
}

// Update writes a partial profile directly and drops any open editor
// session so the next edit starts from the stored state.
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	patch := editor.PartialProfile{Frame: req.Frame, AvatarURL: req.AvatarURL}
	if len(req.Theme) > 0 && string(req.Theme) != "null" {
		normalized := theme.Normalize(req.Theme, nil)
		patch.Theme = &normalized
	}
	if err := h.Profiles.Write(c.UserContext(), user.ID.String(), patch); err != nil {
		return respondError(c, err, "failed updating profile")
	}
	h.Sessions.Drop(user.ID.String())

	recordAudit(h.Audit, c, user, services.AuditProfileSave, "profile", user.ID.String(), map[string]interface{}{"source": "direct"})

	bundle, err := h.Profiles.Read(c.UserContext(), user.ID.String())
	if err != nil {
		return respondError(c, err, "failed loading profile")
	}
	return utils.Success(c, fiber.StatusOK, bundle)
}

func (h *ProfileHandler) UpdateDetails(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	var req services.ProfileDetails
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	profile, err := h.Profiles.UpdateDetails(c.UserContext(), user.ID, req)
	if err != nil {
		return respondError(c, err, "failed updating profile details")
	}
	recordAudit(h.Audit, c, user, services.AuditProfileDetails, "profile", profile.ID.String(), nil)
	return utils.Success(c, fiber.StatusOK, profile)
}

type updateThemeRequest struct {
	Path  string      `json:"path"`
	Value interface{} `json:"value"`
}

func (h *ProfileHandler) UpdateTheme(c *fiber.Ctx) error {
	var req updateThemeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Path) == "" {
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "path is required")
	}

	_, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	frame, err := session.Update(theme.ParsePath(req.Path), req.Value)
	if err != nil {
		return respondError(c, err, "failed updating theme")
	}
	return utils.Success(c, fiber.StatusOK, frame)
}

func (h *ProfileHandler) Preview(c *fiber.Ctx) error {
	_, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"frame": session.Preview(),
		"tab":   session.Tab(),
		"stats": session.Stats(),
	})
}

type setTabRequest struct {
	Tab string `json:"tab"`
}

func (h *ProfileHandler) SetTab(c *fiber.Ctx) error {
	var req setTabRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	_, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	tab, err := session.SetTab(req.Tab)
	if err != nil {
		return respondError(c, err, "failed switching tab")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"tab": tab})
}

func (h *ProfileHandler) Save(c *fiber.Ctx) error {
	user, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	cfg, err := session.Save(c.UserContext())
	if err != nil {
		outcome := "failed"
		if errors.Is(err, editor.ErrSaveSuperseded) {
			outcome = "superseded"
		}
		metrics.ProfileSavesTotal.WithLabelValues(outcome).Inc()
		return respondError(c, err, "failed saving profile")
	}
	metrics.ProfileSavesTotal.WithLabelValues("saved").Inc()

	frame := ""
	if cfg.Frame != nil {
		frame = *cfg.Frame
	}
	recordAudit(h.Audit, c, user, services.AuditProfileSave, "profile", user.ID.String(), map[string]interface{}{
		"source": "editor",
		"frame":  frame,
	})
	return utils.Success(c, fiber.StatusOK, cfg)
}

func (h *ProfileHandler) Discard(c *fiber.Ctx) error {
	_, session, err := sessionFor(c, h.Sessions)
	if err != nil {
		return respondError(c, err, "failed opening editor")
	}
	cfg, err := session.Discard(c.UserContext())
	if err != nil {
		return respondError(c, err, "failed discarding changes")
	}
	return utils.Success(c, fiber.StatusOK, cfg)
}
