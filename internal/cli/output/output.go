// Package output formats CLI results as tables or JSON.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/persona/backend/internal/assets"
	"github.com/persona/backend/internal/editor"
	"github.com/persona/backend/internal/models"
	"github.com/persona/backend/internal/render"
	"github.com/persona/backend/internal/theme"
)

// JSON prints v as indented JSON.
func JSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// AssetTable prints one catalogue page. The default slot is listed first on
// page 0.
func AssetTable(w io.Writer, listing editor.Listing) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNAME\tSOURCE\tRARITY")
	if listing.DefaultSlot {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker(listing.DefaultSelected), "-", "(default)", "-", "-")
	}
	for i, asset := range listing.Items {
		selected := i < len(listing.Selected) && listing.Selected[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", marker(selected), asset.ID(), asset.Name(), asset.Provenance, asset.Rarity)
	}
	tw.Flush()
	fmt.Fprintf(w, "page %d of %d (%d assets)\n", listing.Number+1, max(listing.TotalPages, 1), listing.Total)
}

func marker(selected bool) string {
	if selected {
		return "*"
	}
	return " "
}

// StoreTable prints store items with their ownership.
func StoreTable(w io.Writer, items []assets.StoreItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No store items found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tRARITY\tOWNED")
	for _, item := range items {
		owned := "-"
		if item.Owned {
			owned = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.Name, item.Type, item.Rarity, owned)
	}
	tw.Flush()
}

// PresenceTable prints linked servers and their link state.
func PresenceTable(w io.Writer, presence theme.Presence, states map[string]string, limit int) {
	fmt.Fprintf(w, "mode: %s  linked: %d/%d\n", presence.Type, len(presence.NetworkServers), limit)
	if len(presence.NetworkServers) == 0 {
		fmt.Fprintln(w, "No servers linked.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tGUILD\tSTATE")
	for _, server := range presence.NetworkServers {
		guild := server.GuildID
		if guild == "" {
			guild = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", server.ID, server.Name, guild, states[server.ID])
	}
	tw.Flush()
}

// UserInfo prints account details.
func UserInfo(w io.Writer, u models.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Username:\t%s\n", u.Username)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	if u.DisplayName != "" {
		fmt.Fprintf(tw, "Display name:\t%s\n", u.DisplayName)
	}
	fmt.Fprintf(tw, "Role:\t%s\n", u.Role)
	fmt.Fprintf(tw, "Premium:\t%v\n", u.Premium)
	fmt.Fprintf(tw, "ID:\t%s\n", u.ID)
	tw.Flush()
}

// SceneSummary prints the parts of a rendered scene a person would check
// at a glance.
func SceneSummary(w io.Writer, scene render.Scene) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s (@%s)\n", scene.Identity.DisplayName, scene.Identity.Username)
	if !scene.Entered {
		fmt.Fprintf(tw, "Entrance:\t%q\n", scene.EntranceText)
	}
	background := string(scene.Background.Variant)
	if scene.Background.URL != "" {
		background += " " + scene.Background.URL
	} else if scene.Background.Color != "" {
		background += " " + scene.Background.Color
	}
	fmt.Fprintf(tw, "Background:\t%s\n", background)
	fmt.Fprintf(tw, "Accent:\t%s\n", scene.AccentColor)
	if scene.Audio != nil {
		fmt.Fprintf(tw, "Audio:\t%s (start=%v)\n", scene.Audio.URL, scene.Audio.Start)
	}
	if scene.Frame != nil {
		fmt.Fprintf(tw, "Frame:\t%s\n", scene.Frame.Name)
	}
	fmt.Fprintf(tw, "Links:\t%d\n", len(scene.Links))
	if scene.Presence != nil {
		fmt.Fprintf(tw, "Presence:\t%s\n", scene.Presence.Type)
	}
	tw.Flush()
}

// UploadStats prints the vault quota line.
func UploadStats(w io.Writer, stats editor.UploadStats) {
	if stats.IsAdmin {
		fmt.Fprintf(w, "uploads: %d (no limit)\n", stats.UploadCount)
		return
	}
	fmt.Fprintf(w, "uploads: %d/%d\n", stats.UploadCount, stats.Limit)
}

// Templates prints saved templates newest first.
func Templates(w io.Writer, templates []editor.Template) {
	if len(templates) == 0 {
		fmt.Fprintln(w, "No templates saved.")
		return
	}
	sorted := append([]editor.Template(nil), templates...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSAVED")
	for _, tmpl := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", tmpl.ID, tmpl.Name, RelativeTime(tmpl.CreatedAt))
	}
	tw.Flush()
}

// FormatSize converts bytes to a human-readable string.
func FormatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// RelativeTime formats a timestamp relative to now (e.g. "2h ago", "3d ago").
func RelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
