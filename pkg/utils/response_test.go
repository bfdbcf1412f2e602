package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func responseBody(t *testing.T, handler fiber.Handler) (int, map[string]any) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed decoding response body: %v", err)
	}
	return resp.StatusCode, body
}

func TestSuccessEnvelope(t *testing.T) {
	status, body := responseBody(t, func(c *fiber.Ctx) error {
		return Success(c, fiber.StatusCreated, fiber.Map{"id": "123"})
	})

	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d, got %d", fiber.StatusCreated, status)
	}
	if body["success"] != true {
		t.Fatalf("expected success=true, got %v", body["success"])
	}
	data, ok := body["data"].(map[string]any)
	if !ok || data["id"] != "123" {
		t.Fatalf("unexpected data: %v", body["data"])
	}
}

func TestErrorEnvelopes(t *testing.T) {
	status, body := responseBody(t, func(c *fiber.Ctx) error {
		return Error(c, fiber.StatusBadRequest, "invalid input")
	})
	if status != fiber.StatusBadRequest || body["success"] != false || body["error"] != "invalid input" {
		t.Fatalf("unexpected error envelope: %d %v", status, body)
	}
	if _, ok := body["code"]; ok {
		t.Fatal("expected plain errors to carry no code")
	}

	status, body = responseBody(t, func(c *fiber.Ctx) error {
		return ErrorCode(c, fiber.StatusConflict, CodeCapacity, "upload limit reached")
	})
	if status != fiber.StatusConflict || body["code"] != CodeCapacity || body["error"] != "upload limit reached" {
		t.Fatalf("unexpected coded envelope: %d %v", status, body)
	}
}

func TestPaginatedEnvelope(t *testing.T) {
	_, body := responseBody(t, func(c *fiber.Ctx) error {
		return Paginated(c, []string{"a", "b"}, 2, 20, 45)
	})

	pagination, ok := body["pagination"].(map[string]any)
	if !ok {
		t.Fatalf("expected pagination object, got %T", body["pagination"])
	}
	want := map[string]float64{"page": 2, "limit": 20, "total": 45, "totalPages": 3}
	for key, value := range want {
		if pagination[key] != value {
			t.Errorf("pagination.%s = %v, want %v", key, pagination[key], value)
		}
	}
	if data, ok := body["data"].([]any); !ok || len(data) != 2 {
		t.Fatalf("expected two data items, got %v", body["data"])
	}

	_, body = responseBody(t, func(c *fiber.Ctx) error {
		return Paginated(c, []string{}, 1, 0, 3)
	})
	if body["pagination"].(map[string]any)["totalPages"] != float64(0) {
		t.Fatal("expected zero limit to report zero pages")
	}
}
