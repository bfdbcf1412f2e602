package handlers

import (
	"encoding/csv"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/persona/backend/internal/models"
)

func TestAuditLogListsOwnActions(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice", "password123", models.UserRoleUser)
	_, otherToken := createTestUser(t, env.db, "bob", "password123", models.UserRoleUser)

	resp := performRequest(t, env.app, http.MethodPost, "/api/store/halo/purchase", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)
	resp = performRequest(t, env.app, http.MethodPost, "/api/profile/save", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	env.audit.Close()

	resp = performRequest(t, env.app, http.MethodGet, "/api/audit?page=1&limit=10", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	body := decodeJSONMap(t, resp)
	rows, _ := body["data"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected 2 audit rows, got %+v", body["data"])
	}
	pagination, _ := body["pagination"].(map[string]any)
	if total, _ := pagination["total"].(float64); total != 2 {
		t.Fatalf("expected total 2, got %+v", pagination)
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/audit", nil, authHeaders(otherToken))
	assertStatus(t, resp, http.StatusOK)
	if rows, _ := decodeJSONMap(t, resp)["data"].([]any); len(rows) != 0 {
		t.Fatalf("expected no rows for another user, got %d", len(rows))
	}
}

func TestAuditExportCSV(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice", "password123", models.UserRoleUser)

	resp := performRequest(t, env.app, http.MethodPost, "/api/store/halo/purchase", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)
	env.audit.Close()

	resp = performRequest(t, env.app, http.MethodGet, "/api/audit/export?format=csv", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	if !strings.Contains(resp.Header.Get("Content-Type"), "text/csv") {
		t.Fatalf("expected csv content type, got %q", resp.Header.Get("Content-Type"))
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading csv: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	if err != nil {
		t.Fatalf("failed parsing csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header and one row, got %d records", len(records))
	}
	if !strings.Contains(strings.Join(records[1], ","), "store.purchase") {
		t.Fatalf("expected purchase row, got %v", records[1])
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/audit/export?format=xml", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusBadRequest)
}
