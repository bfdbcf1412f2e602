package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("DISCORD_CLIENT_ID", "")

	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.Redis.Enabled() {
		t.Error("expected redis to be disabled without an address")
	}
	if cfg.Discord.OAuthEnabled() {
		t.Error("expected discord oauth to be disabled without credentials")
	}
	if cfg.Limits.AssetPageSize != 8 {
		t.Errorf("expected asset page size 8, got %d", cfg.Limits.AssetPageSize)
	}
	if cfg.Limits.MaxUploadBytes != 25<<20 {
		t.Errorf("expected 25MB upload cap, got %d", cfg.Limits.MaxUploadBytes)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("VISIT_TOKEN_SECRET", "")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LIMIT_PREMIUM_UPLOADS", "100")
	t.Setenv("EDITOR_SESSION_IDLE_TTL", "10m")
	t.Setenv("DISCORD_API_BASE_URL", "http://directory.test/api/")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := Load()

	if !cfg.Redis.Enabled() || cfg.Redis.Addr != "redis:6379" {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Limits.PremiumUploads != 100 {
		t.Errorf("expected premium uploads 100, got %d", cfg.Limits.PremiumUploads)
	}
	if cfg.Editor.SessionIdleTTL != 10*time.Minute {
		t.Errorf("expected idle ttl 10m, got %s", cfg.Editor.SessionIdleTTL)
	}
	if cfg.Discord.APIBaseURL != "http://directory.test/api" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Discord.APIBaseURL)
	}
	if !cfg.MinIO.UseSSL {
		t.Error("expected MINIO_USE_SSL=true to be honored")
	}
	if cfg.Server.EncryptionSecret != "jwt-secret" {
		t.Errorf("expected encryption secret to fall back to the jwt secret, got %q", cfg.Server.EncryptionSecret)
	}
}

func TestEnvHelpersFallBackOnBadValues(t *testing.T) {
	t.Setenv("BAD_INT", "ten")
	t.Setenv("BAD_DURATION", "soon")
	t.Setenv("BAD_BOOL", "maybe")

	if getEnvAsInt("BAD_INT", 3) != 3 {
		t.Error("expected int fallback")
	}
	if getEnvAsDuration("BAD_DURATION", time.Second) != time.Second {
		t.Error("expected duration fallback")
	}
	if !getEnvAsBool("BAD_BOOL", true) {
		t.Error("expected bool fallback")
	}
}
