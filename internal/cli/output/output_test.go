package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/theme"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatSize(tt.input); got != tt.want {
				t.Errorf("FormatSize(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		name  string
		input time.Time
		want  string
	}{
		{"just now", time.Now(), "just now"},
		{"minutes", time.Now().Add(-5 * time.Minute), "5m ago"},
		{"hours", time.Now().Add(-3 * time.Hour), "3h ago"},
		{"days", time.Now().Add(-7 * 24 * time.Hour), "7d ago"},
		{"date", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), "2024-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RelativeTime(tt.input); got != tt.want {
				t.Errorf("RelativeTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssetTable(t *testing.T) {
	listing := editor.Listing{
		Page: assets.Page{
			Number:      0,
			Size:        3,
			TotalPages:  2,
			Total:       3,
			DefaultSlot: true,
			Items: []assets.Asset{
				assets.FromStore(assets.StoreItem{ID: "halo", Name: "Halo", Rarity: "rare"}),
				assets.FromStore(assets.StoreItem{ID: "vines", Name: "Vines", Rarity: "epic"}),
			},
		},
		Selected: []bool{false, true},
	}

	var buf bytes.Buffer
	AssetTable(&buf, listing)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, default, two assets and footer, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "(default)") {
		t.Errorf("expected default slot first, got %q", lines[1])
	}
	if strings.HasPrefix(lines[2], "*") {
		t.Errorf("halo should not be selected: %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "*") || !strings.Contains(lines[3], "epic") {
		t.Errorf("vines should be selected and epic: %q", lines[3])
	}
	if lines[4] != "page 1 of 2 (3 assets)" {
		t.Errorf("unexpected footer %q", lines[4])
	}
}

func TestStoreTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	StoreTable(&buf, nil)
	if buf.String() != "No store items found.\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestPresenceTable(t *testing.T) {
	presence := theme.Presence{
		Type:           theme.PresenceServer,
		NetworkServers: []theme.NetworkServer{{ID: "s1", Name: "Night Owls", GuildID: "42"}},
	}

	var buf bytes.Buffer
	PresenceTable(&buf, presence, map[string]string{"s1": "active"}, 4)
	out := buf.String()
	if !strings.HasPrefix(out, "mode: server  linked: 1/4\n") {
		t.Errorf("unexpected header in %q", out)
	}
	if !strings.Contains(out, "Night Owls") || !strings.Contains(out, "active") {
		t.Errorf("expected server row in %q", out)
	}
}

func TestUploadStats(t *testing.T) {
	var buf bytes.Buffer
	UploadStats(&buf, editor.UploadStats{UploadCount: 2, Limit: 3})
	UploadStats(&buf, editor.UploadStats{UploadCount: 9, IsAdmin: true})
	if buf.String() != "uploads: 2/3\nuploads: 9 (no limit)\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
