package render

import (
	"fmt"
	"strconv"
	"strings"
)

type rgb struct {
	r, g, b int
}

// parseColor accepts #rgb, #rrggbb, rgb(r, g, b) and rgba(r, g, b, a).
func parseColor(value string) (rgb, bool) {
	value = strings.ToLower(strings.TrimSpace(value))

	if strings.HasPrefix(value, "#") {
		hex := value[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return rgb{}, false
		}
		parsed, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return rgb{}, false
		}
		return rgb{r: int(parsed >> 16 & 0xff), g: int(parsed >> 8 & 0xff), b: int(parsed & 0xff)}, true
	}

	var body string
	switch {
	case strings.HasPrefix(value, "rgba(") && strings.HasSuffix(value, ")"):
		body = value[len("rgba(") : len(value)-1]
	case strings.HasPrefix(value, "rgb(") && strings.HasSuffix(value, ")"):
		body = value[len("rgb(") : len(value)-1]
	default:
		return rgb{}, false
	}

	parts := strings.Split(body, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return rgb{}, false
	}
	channels := make([]int, 3)
	for i := 0; i < 3; i++ {
		channel, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || channel < 0 || channel > 255 {
			return rgb{}, false
		}
		channels[i] = channel
	}
	return rgb{r: channels[0], g: channels[1], b: channels[2]}, true
}

// withAlpha re-expresses color with the given alpha. Colors that cannot be
// parsed pass through untouched.
func withAlpha(color string, alpha float64) string {
	parsed, ok := parseColor(color)
	if !ok {
		return color
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", parsed.r, parsed.g, parsed.b, strconv.FormatFloat(alpha, 'f', -1, 64))
}
