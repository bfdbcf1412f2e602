package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/persona/backend/internal/cli/cliconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	flagJSON, flagServerURL = false, ""
	flagLogin, flagPassword = "", ""
	flagFrame = ""
	flagThemeFile, flagConfirmAge, flagEntered, flagNSFW, flagName = "", false, false, false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("PERSONA_CONFIG", path)
	return path
}

func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/auth/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["login"] != "alice" || body["password"] != "hunter22" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":"invalid credentials"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"token":"tok-1","user":{"username":"alice","email":"alice@example.com","role":"user"}}}`))
		case r.URL.Path == "/api/auth/me":
			if r.Header.Get("Authorization") != "Bearer tok-1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"username":"alice","email":"alice@example.com","role":"user","premium":true}}`))
		case r.URL.Path == "/api/public/bob":
			if r.URL.Query().Get("nsfwConfirmed") != "true" {
				w.WriteHeader(http.StatusUnavailableForLegalReasons)
				_, _ = w.Write([]byte(`{"success":false,"error":"confirm your age","code":"nsfw"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"data":{"username":"bob","scene":{"entered":false,"entranceText":"click to enter","identity":{"displayName":"Bob","username":"bob"},"background":{"variant":"color","color":"#000000"}},"views":7,"nsfw":true,"visitToken":"visit-1"}}`))
		case r.URL.Path == "/api/version":
			_, _ = w.Write([]byte(`{"success":true,"data":{"version":"1.2.3","apiVersion":"v1","commit":"0123456789ab"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"error":"not found"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLoginStoresTokenAndWhoami(t *testing.T) {
	path := useTempConfig(t)
	server := fakeServer(t)

	out, err := runCLI(t, "hunter22\n", "--server", server.URL, "login", "--login", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice (alice@example.com)")

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"token": "tok-1"`)

	// The server URL is not persisted by login, so pass it again.
	out, err = runCLI(t, "", "--server", server.URL, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice@example.com")
	assert.Contains(t, out, "true")

	_, err = runCLI(t, "", "logout")
	require.NoError(t, err)
	cfg, err := cliconfig.Load()
	require.NoError(t, err)
	assert.False(t, cfg.HasToken())
}

func TestLoginRejectsBadPassword(t *testing.T) {
	useTempConfig(t)
	server := fakeServer(t)

	_, err := runCLI(t, "", "--server", server.URL, "login", "--login", "alice", "--password", "nope")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
}

func TestCommandsRequireAuth(t *testing.T) {
	useTempConfig(t)

	_, err := runCLI(t, "", "assets", "frame")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persona login")
}

func TestNormalizeFromStdin(t *testing.T) {
	useTempConfig(t)

	out, err := runCLI(t, `{"entranceText":"hi","bogus":true}`, "normalize", "--frame", "halo")
	require.NoError(t, err)

	var cfg map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "hi", cfg["entranceText"])
	assert.Equal(t, "halo", cfg["frame"])
	assert.NotContains(t, cfg, "bogus")
}

func TestRenderRemoteNSFW(t *testing.T) {
	useTempConfig(t)
	server := fakeServer(t)

	_, err := runCLI(t, "", "--server", server.URL, "render", "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--confirm-age")

	out, err := runCLI(t, "", "--server", server.URL, "render", "bob", "--confirm-age")
	require.NoError(t, err)
	assert.Contains(t, out, "Bob (@bob)")
	assert.Contains(t, out, `"click to enter"`)
	assert.Contains(t, out, "Views: 7")
}

func TestRenderLocalTheme(t *testing.T) {
	useTempConfig(t)
	path := filepath.Join(t.TempDir(), "theme.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"entranceText":"welcome"}`), 0600))

	out, err := runCLI(t, "", "render", "--theme", path, "--name", "Carol")
	require.NoError(t, err)
	assert.Contains(t, out, "Carol (@carol)")
	assert.Contains(t, out, `"welcome"`)

	_, err = runCLI(t, "", "render", "--theme", path, "--nsfw")
	require.Error(t, err)

	out, err = runCLI(t, "", "render", "--theme", path, "--nsfw", "--confirm-age", "--entered")
	require.NoError(t, err)
	assert.NotContains(t, out, "Entrance:")
}

func TestVersion(t *testing.T) {
	useTempConfig(t)
	server := fakeServer(t)

	out, err := runCLI(t, "", "--server", server.URL, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Server: 1.2.3 (API v1)")
	assert.Contains(t, out, "Commit: 0123456789ab")
}
