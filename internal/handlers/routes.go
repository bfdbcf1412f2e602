package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/persona/backend/internal/middleware"
)

type Handlers struct {
	Auth      *AuthHandler
	Profile   *ProfileHandler
	Assets    *AssetsHandler
	Uploads   *UploadsHandler
	Store     *StoreHandler
	Presence  *PresenceHandler
	Templates *TemplatesHandler
	Platform  *PlatformHandler
	Public    *PublicHandler
	Audit     *AuditHandler
	Users     *UsersHandler
}

func RegisterRoutes(app *fiber.App, h Handlers, auth *middleware.AuthMiddleware) {
	api := app.Group("/api")
	api.Get("/version", GetVersion)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", h.Auth.Register)
	authRoutes.Post("/login", h.Auth.Login)
	authRoutes.Get("/me", auth.RequireAuth, h.Auth.Me)

	profileRoutes := api.Group("/profile", auth.RequireAuth)
	profileRoutes.Get("/", h.Profile.Get)
	profileRoutes.Put("/", h.Profile.Update)
	profileRoutes.Put("/details", h.Profile.UpdateDetails)
	profileRoutes.Patch("/theme", h.Profile.UpdateTheme)
	profileRoutes.Get("/preview", h.Profile.Preview)
	profileRoutes.Put("/tab", h.Profile.SetTab)
	profileRoutes.Post("/save", h.Profile.Save)
	profileRoutes.Post("/discard", h.Profile.Discard)

	assetRoutes := api.Group("/assets", auth.RequireAuth)
	assetRoutes.Get("/:category", h.Assets.List)
	assetRoutes.Post("/:category/apply", h.Assets.Apply)

	uploadRoutes := api.Group("/uploads", auth.RequireAuth)
	uploadRoutes.Get("/", h.Uploads.List)
	uploadRoutes.Post("/", h.Uploads.Create)
	uploadRoutes.Get("/stats", h.Uploads.Stats)
	uploadRoutes.Post("/delete-batch", h.Uploads.DeleteBatch)
	uploadRoutes.Delete("/:id", h.Uploads.Delete)
	api.Get("/media/:id", h.Uploads.Media)

	storeRoutes := api.Group("/store", auth.RequireAuth)
	storeRoutes.Get("/", h.Store.List)
	storeRoutes.Post("/:id/purchase", h.Store.Purchase)

	presenceRoutes := api.Group("/presence", auth.RequireAuth)
	presenceRoutes.Get("/", h.Presence.Get)
	presenceRoutes.Post("/servers/verify", h.Presence.Verify)
	presenceRoutes.Delete("/servers", h.Presence.Reset)
	presenceRoutes.Delete("/servers/:id", h.Presence.Unlink)
	presenceRoutes.Put("/servers/:id/active", h.Presence.SetActive)

	templateRoutes := api.Group("/templates", auth.RequireAuth)
	templateRoutes.Post("/", h.Templates.Create)
	templateRoutes.Get("/", h.Templates.List)
	templateRoutes.Post("/:id/apply", h.Templates.Apply)
	templateRoutes.Delete("/:id", h.Templates.Delete)

	api.Get("/platform/discord/link", auth.RequireAuth, h.Platform.LinkURL)
	api.Get("/platform/discord/callback", h.Platform.Callback)
	api.Delete("/platform/discord", auth.RequireAuth, h.Platform.Unlink)

	publicRoutes := api.Group("/public", auth.OptionalAuth)
	publicRoutes.Get("/:username", h.Public.Get)
	publicRoutes.Post("/:username/enter", h.Public.Enter)

	auditRoutes := api.Group("/audit", auth.RequireAuth)
	auditRoutes.Get("/", h.Audit.List)
	auditRoutes.Get("/export", h.Audit.ExportMyLog)

	adminRoutes := api.Group("/admin", auth.RequireAuth, middleware.AdminOnly)
	adminRoutes.Get("/users", h.Users.List)
	adminRoutes.Put("/users/:id", h.Users.Update)
}
