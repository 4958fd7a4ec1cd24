// Package ctl implements the client-side commands for guardctl.
// It talks to the safety backend over HTTP and WebSocket and renders the results to the terminal.
package ctl

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/large-farva/conveyor-guard/internal/models"
	"github.com/large-farva/conveyor-guard/internal/stream"
)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
	white  = "\033[37m"
)

// colorOverride forces color on or off. Tests set it to false.
var colorOverride *bool

// colorEnabled reports whether stdout is a terminal. When output is piped
// or redirected, ANSI escape codes are suppressed.
func colorEnabled() bool {
	if colorOverride != nil {
		return *colorOverride
	}
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// riskColor returns the ANSI color code for a risk level.
func riskColor(r models.RiskLevel) string {
	switch r {
	case models.RiskCritical:
		return red
	case models.RiskHigh:
		return yellow
	case models.RiskMedium, models.RiskWarning:
		return cyan
	case models.RiskSafe:
		return green
	default:
		return white
	}
}

// modeColor returns the ANSI color code for an operation mode.
func modeColor(m models.OperationMode) string {
	switch m {
	case models.ModeAutomatic:
		return green
	case models.ModeMaintenance:
		return blue
	case models.ModeInactive:
		return dim
	default:
		return white
	}
}

// connColor returns the ANSI color code for a stream state.
func connColor(s stream.State) string {
	switch s {
	case stream.StateOpen:
		return green
	case stream.StateConnecting:
		return yellow
	case stream.StateErrored:
		return red
	default:
		return dim
	}
}

// colorize wraps text with an ANSI color sequence.
// Returns the text unchanged when color output is disabled.
func colorize(color, text string) string {
	if !colorEnabled() || color == "" {
		return text
	}
	return color + text + reset
}

// header returns a bold section header, or plain text when color is off.
func header(title string) string {
	if colorEnabled() {
		return bold + title + reset
	}
	return title
}

func rule(width int) string {
	return colorize(dim, "  "+strings.Repeat("─", width))
}

// padRight pads s with spaces to reach the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

// formatTime renders an event timestamp in local time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "--:--:--"
	}
	return t.Local().Format("15:04:05")
}

// formatDuration renders a time.Duration as a compact human string like
// "2h 14m 8s" or "45s".
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// formatRisk returns a colored, fixed-width risk label.
func formatRisk(r models.RiskLevel) string {
	return colorize(riskColor(r), padRight(string(r), 8))
}

// formatMode returns a colored mode label with a lock marker.
func formatMode(m models.OperationMode, locked bool) string {
	s := colorize(modeColor(m), m.Label())
	if locked {
		s += " " + colorize(red, "[LOCKED]")
	}
	return s
}

// formatLogLine renders one event as a single table row.
func formatLogLine(e models.LogEntry) string {
	return fmt.Sprintf("%s  %s  %s  %s",
		colorize(dim, formatTime(e.Timestamp)),
		formatRisk(e.RiskLevel),
		padRight(e.EventType.Label(), 22),
		e.Description(),
	)
}

// formatPoints renders a polygon as "x,y x,y ...".
func formatPoints(points []models.Point) string {
	parts := make([]string, 0, len(points))
	for _, p := range points {
		parts = append(parts, fmt.Sprintf("%g,%g", p.X, p.Y))
	}
	return strings.Join(parts, " ")
}
