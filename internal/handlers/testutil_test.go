package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/config"
	"github.com/persona/backend/internal/database"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/middleware"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/services"
	"github.com/persona/backend/internal/storage"
	"github.com/persona/backend/pkg/logger"
	"github.com/persona/backend/pkg/utils"
	"github.com/persona/backend/pkg/visittoken"
	"gorm.io/gorm"
)

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	store    *storage.MemoryStore
	sessions *editor.Registry
	profiles *services.ProfileService
	audit    *services.AuditService
}

var testSetupOnce sync.Once

var testLimits = config.LimitsConfig{
	FreeUploads:      1,
	PremiumUploads:   3,
	MaxUploadBytes:   1024,
	FreeLinks:        2,
	PremiumLinks:     5,
	AssetPageSize:    4,
	AssetCacheTTL:    time.Minute,
	TemplatesPerUser: 2,
}

// newFakeDirectory answers invite lookups for "owls" and "cats" and reports
// everything else as unknown.
func newFakeDirectory(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/invites/owls":
			_, _ = w.Write([]byte(`{"code":"owls","guild":{"id":"42","name":"Night Owls","icon":"f00"},"approximate_member_count":120,"approximate_presence_count":30}`))
		case "/invites/cats":
			_, _ = w.Write([]byte(`{"code":"cats","guild":{"id":"43","name":"Cat Club"},"approximate_member_count":8,"approximate_presence_count":3}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Unknown Invite","code":10006}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
		utils.ConfigureEncryption("test-encryption-secret")
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed migrating models: %v", err)
	}
	if err := database.SeedStoreCatalogue(db); err != nil {
		t.Fatalf("failed seeding store catalogue: %v", err)
	}

	discord := config.DiscordConfig{APIBaseURL: newFakeDirectory(t), Timeout: 2 * time.Second}

	objectStore := storage.NewMemoryStore()
	auditService := services.NewAuditService(db, objectStore)
	t.Cleanup(auditService.Close)
	profileService := services.NewProfileService(db, testLimits)
	uploadService := services.NewUploadService(db, objectStore, testLimits)
	storeService := services.NewStoreService(db)
	templateService := services.NewTemplateService(db, testLimits.TemplatesPerUser)
	platformService := services.NewPlatformLinkService(db, discord)
	directoryService := services.NewDirectoryService(discord)
	publicService := &services.PublicService{
		Profiles: profileService,
		Store:    storeService,
		Users:    platformService,
		Servers:  directoryService,
	}

	registry := editor.NewRegistry(editor.Deps{
		Profiles:  profileService,
		Uploads:   uploadService,
		Store:     storeService,
		Platform:  platformService,
		Directory: directoryService,
		Templates: templateService,
		Cache:     assets.NewMemoryCache(),
		CacheTTL:  testLimits.AssetCacheTTL,
		PageSize:  testLimits.AssetPageSize,
	}, time.Hour)

	visits := visittoken.NewIssuer("visit-secret", time.Minute, visittoken.NewMemoryLedger())

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3000"))
	app.Use(middleware.Metrics())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	RegisterRoutes(app, Handlers{
		Auth:      NewAuthHandler(db, auditService),
		Profile:   NewProfileHandler(profileService, registry, auditService),
		Assets:    NewAssetsHandler(registry),
		Uploads:   NewUploadsHandler(uploadService, registry, auditService),
		Store:     NewStoreHandler(storeService, registry, auditService),
		Presence:  NewPresenceHandler(registry, auditService),
		Templates: NewTemplatesHandler(templateService, registry, auditService),
		Platform:  NewPlatformHandler(platformService, registry, auditService, "http://localhost:3000"),
		Public:    NewPublicHandler(publicService, visits),
		Audit:     NewAuditHandler(auditService),
		Users:     NewUsersHandler(db, registry, auditService),
	}, authMiddleware)

	return &testEnv{
		app:      app,
		db:       db,
		store:    objectStore,
		sessions: registry,
		profiles: profileService,
		audit:    auditService,
	}
}

func createTestUser(t *testing.T, db *gorm.DB, username, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %+v", body)
	}
	return data
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d body=%s", expected, resp.StatusCode, string(raw))
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func assertEnvelopeCode(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if got, _ := body["code"].(string); got != expected {
		t.Fatalf("expected code %q, got %q (%+v)", expected, got, body)
	}
}
