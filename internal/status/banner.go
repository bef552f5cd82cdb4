package status

import (
	"fmt"
	"strings"
)

// Hotkey is one binding listed in the banner.
type Hotkey struct {
	Action string
	Chord  string
}

// Banner describes the session as it starts.
type Banner struct {
	Mode    string
	MinRate float64
	MaxRate float64
	Paused  bool
	Hotkeys []Hotkey
}

// Banner renders b as a short multi-line block.
func (r *Reporter) Banner(b Banner) string {
	st := r.styles

	var sb strings.Builder
	sb.WriteString(st.name.Render(appName))
	sb.WriteString(st.label.Render(fmt.Sprintf(" mode=%s cps=%.1f..%.1f paused=%t",
		strings.ToUpper(b.Mode), b.MinRate, b.MaxRate, b.Paused)))

	for _, h := range b.Hotkeys {
		sb.WriteString("\n  ")
		sb.WriteString(st.rate.Render(fmt.Sprintf("%-6s", strings.ToUpper(h.Chord))))
		sb.WriteString(" ")
		sb.WriteString(h.Action)
	}

	return sb.String()
}
