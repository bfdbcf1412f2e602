package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", fileName)
	t.Setenv("PERSONA_CONFIG", path)
	return path
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	useTempConfig(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ServerURL != DefaultURL {
		t.Errorf("expected default server URL, got %q", cfg.ServerURL)
	}
	if cfg.HasToken() {
		t.Error("expected no token")
	}
}

func TestSaveLoadClear(t *testing.T) {
	path := useTempConfig(t)

	if err := Save(&Config{ServerURL: "https://persona.example", Token: "abc", Username: "alice"}); err != nil {
		t.Fatalf("Save() returned error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected config file: %v", err)
	}
	if info.Mode().Perm() != filePerms {
		t.Errorf("expected perms %o, got %o", filePerms, info.Mode().Perm())
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ServerURL != "https://persona.example" || cfg.Token != "abc" || cfg.Username != "alice" {
		t.Errorf("unexpected config %+v", cfg)
	}

	if err := Clear(); err != nil {
		t.Fatalf("Clear() returned error: %v", err)
	}
	if err := Clear(); err != nil {
		t.Fatalf("second Clear() returned error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected config removed, got %v", err)
	}
}

func TestLoadFillsEmptyServerURL(t *testing.T) {
	path := useTempConfig(t)
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"token":"abc"}`), filePerms); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ServerURL != DefaultURL {
		t.Errorf("expected default server URL, got %q", cfg.ServerURL)
	}
}
