package editor

import "strings"

// Tab is the editor panel currently open.
type Tab string

const (
	TabColors     Tab = "colors"
	TabBackground Tab = "background"
	TabEffects    Tab = "effects"
	TabAudio      Tab = "audio"
	TabCursor     Tab = "cursor"
	TabFrames     Tab = "frames"
	TabLayout     Tab = "layout"
	TabPresence   Tab = "presence"
	TabEntrance   Tab = "entrance"
)

var tabs = []Tab{TabColors, TabBackground, TabEffects, TabAudio, TabCursor, TabFrames, TabLayout, TabPresence, TabEntrance}

func ParseTab(value string) (Tab, bool) {
	candidate := Tab(strings.ToLower(strings.TrimSpace(value)))
	for _, tab := range tabs {
		if tab == candidate {
			return tab, true
		}
	}
	return "", false
}

func Tabs() []Tab {
	return append([]Tab(nil), tabs...)
}
