package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/metrics"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/render"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/pkg/logger"
	"github.com/persona/backend/pkg/utils"
	"github.com/persona/backend/pkg/visittoken"
)

const CodeNSFW = "nsfw"

// PublicHandler serves published profile pages to anyone.
type PublicHandler struct {
	Public   *services.PublicService
	Profiles *services.ProfileService
	Visits   *visittoken.Issuer
}

func NewPublicHandler(public *services.PublicService, visits *visittoken.Issuer) *PublicHandler {
	return &PublicHandler{Public: public, Profiles: public.Profiles, Visits: visits}
}

func visitorID(c *fiber.Ctx) string {
	if user := middleware.GetCurrentUser(c); user != nil {
		return user.ID.String()
	}
	return ""
}

// Get renders the page and hands out a visit token for the entrance. An
// NSFW profile answers 451 until the visitor confirms with
// nsfwConfirmed=true; the confirmation is not remembered.
func (h *PublicHandler) Get(c *fiber.Ctx) error {
	page, err := h.Public.Lookup(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err, "failed loading profile")
	}

	viewer := render.NewViewer(page.Config, page.Entities, page.Profile.NSFW, nil, nil)
	if c.QueryBool("nsfwConfirmed", false) {
		viewer.ConfirmAge()
	}
	if c.QueryBool("entered", false) {
		viewer.Enter()
	}
	scene, err := viewer.Scene()
	if errors.Is(err, render.ErrAgeConfirmationRequired) {
		return utils.ErrorCode(c, fiber.StatusUnavailableForLegalReasons, CodeNSFW, "this profile is marked NSFW; confirm your age to continue")
	}

	token, err := h.Visits.Generate(page.User.Username, visitorID(c))
	if err != nil {
		return respondError(c, err, "failed issuing visit token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"username":   page.User.Username,
		"scene":      scene,
		"views":      page.Profile.Views,
		"nsfw":       page.Profile.NSFW,
		"visitToken": token,
	})
}

type enterRequest struct {
	Token string `json:"token"`
}

// Enter redeems a visit token. The first redemption counts a view and
// returns the entered scene.
func (h *PublicHandler) Enter(c *fiber.Ctx) error {
	var req enterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	username := strings.TrimSpace(c.Params("username"))

	visit, err := h.Visits.Validate(req.Token)
	if err != nil {
		metrics.VisitsTotal.WithLabelValues("invalid").Inc()
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, err.Error())
	}
	if !strings.EqualFold(visit.Username, username) {
		metrics.VisitsTotal.WithLabelValues("invalid").Inc()
		return utils.ErrorCode(c, fiber.StatusBadRequest, utils.CodeValidation, "visit token is for another profile")
	}

	page, err := h.Public.Lookup(c.UserContext(), username)
	if err != nil {
		return respondError(c, err, "failed loading profile")
	}

	if _, err := h.Visits.Redeem(c.UserContext(), req.Token); err != nil {
		if errors.Is(err, visittoken.ErrAlreadyUsed) {
			metrics.VisitsTotal.WithLabelValues("reused").Inc()
			return utils.ErrorCode(c, fiber.StatusConflict, utils.CodeConflict, err.Error())
		}
		return respondError(c, err, "failed redeeming visit token")
	}

	views := page.Profile.Views
	viewer := render.NewViewer(page.Config, page.Entities, page.Profile.NSFW, nil, func() {
		counted, err := h.Profiles.IncrementViews(c.UserContext(), page.Profile.ID)
		if err != nil {
			logger.Error("profile_view_count_failed", err, map[string]interface{}{"username": page.User.Username})
			return
		}
		views = counted
	})
	// A token is only issued once the age check passed.
	viewer.ConfirmAge()
	viewer.Enter()
	scene, _ := viewer.Scene()
	metrics.VisitsTotal.WithLabelValues("counted").Inc()

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"username": page.User.Username,
		"scene":    scene,
		"views":    views,
	})
}
