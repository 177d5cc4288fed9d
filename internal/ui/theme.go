package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme colors for the TUI.
var (
	ColorBackground      = tcell.NewHexColor(0x1e1e2e)
	ColorBackgroundPanel = tcell.NewHexColor(0x181825)
	ColorPrimary         = tcell.NewHexColor(0x89b4fa) // blue
	ColorAccent          = tcell.NewHexColor(0xcba6f7) // mauve
	ColorText            = tcell.NewHexColor(0xcdd6f4)
	ColorTextMuted       = tcell.NewHexColor(0x6c7086)
	ColorSuccess         = tcell.NewHexColor(0xa6e3a1) // green
	ColorWarning         = tcell.NewHexColor(0xf9e2af) // yellow
	ColorCaution         = tcell.NewHexColor(0xfab387) // peach
	ColorError           = tcell.NewHexColor(0xf38ba8) // red
	ColorBorder          = tcell.NewHexColor(0x45475a)
)

const (
	IconCheck = "✓"
	IconError = "❌"
)

// UsageColor picks the bar color for a usage percentage.
func UsageColor(pct float64) tcell.Color {
	switch {
	case pct >= 90:
		return ColorError
	case pct >= 70:
		return ColorCaution
	case pct >= 50:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

// tag is the tview color tag for c.
func tag(c tcell.Color) string {
	return fmt.Sprintf("[#%06x]", c.Hex())
}
