package ctl

import (
	"fmt"
	"io"
	"strings"

	"github.com/large-farva/conveyor-guard/internal/dashboard"
)

const clearScreen = "\033[H\033[2J"

// RenderPanel writes the dashboard as a text panel: connection, mode, alert,
// notices, zones, the zone editor when open, and the newest logs.
func RenderPanel(w io.Writer, st dashboard.State, maxLogs int) {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("")
	line("%s", header("  CONVEYOR GUARD"))
	line("%s", rule(70))

	conn := colorize(connColor(st.Connection), st.Connection.String())
	if st.ConnectionLost {
		conn += " " + colorize(red, "connection lost")
		if st.ConnectionErr != "" {
			conn += colorize(dim, " ("+st.ConnectionErr+")")
		}
	} else if st.Retries > 0 {
		conn += colorize(dim, fmt.Sprintf(" (retry %d)", st.Retries))
	}
	line("  %-14s %s", colorize(dim, "Connection:"), conn)
	line("  %-14s %s", colorize(dim, "Mode:"), formatMode(st.Mode, st.Locked))

	if st.Loading {
		line("  %s", colorize(dim, "loading..."))
	}
	if st.Error != "" {
		line("")
		line("  %s  %s", colorize(red, "ERROR"), st.Error)
		line("  %s", colorize(dim, "type 'reload' to try again"))
	}
	if st.Alert != nil {
		e := st.Alert.Entry
		line("")
		line("  %s  %s  %s", colorize(red, "!! ALERT"), formatRisk(e.RiskLevel), e.EventType.Label())
		line("            %s  %s", colorize(dim, formatTime(e.Timestamp)), e.Description())
	}
	if st.Popup != nil {
		line("")
		line("  %s  %s", colorize(red, "FAILED"), st.Popup.Text)
	}
	if st.Banner != nil {
		line("")
		line("  %s  %s", colorize(green, "OK"), st.Banner.Text)
	}

	line("")
	line("%s", header(fmt.Sprintf("  ZONES (%d)", len(st.Zones))))
	if len(st.Zones) == 0 {
		line("  %s", colorize(dim, "none"))
	}
	for _, z := range st.Zones {
		mark := " "
		if z.ID == st.SelectedZone {
			mark = colorize(cyan, "*")
		}
		line("  %s %s  %s  %s", mark, padRight(truncate(z.DisplayName(), 20), 20),
			colorize(dim, z.ID), colorize(dim, fmt.Sprintf("%d points", len(z.Points))))
	}

	if st.ZoneConfig {
		line("")
		line("%s", header("  ZONE EDITOR"))
		line("  %-14s %s", colorize(dim, "Action:"), string(st.ZoneAction))
		if st.SelectedZone != "" {
			line("  %-14s %s", colorize(dim, "Selected:"), st.SelectedZone)
		}
		line("  %-14s %s", colorize(dim, "Name:"), st.DraftName)
		line("  %-14s %s", colorize(dim, "Points:"), formatPoints(st.DraftPoints))
		line("  %-14s %s", colorize(dim, "Frame:"), st.ImageSize.String())
	}

	line("")
	line("%s", header("  LATEST EVENTS"))
	if len(st.Logs) == 0 {
		line("  %s", colorize(dim, "no events yet"))
	}
	for i, e := range st.Logs {
		if i == maxLogs {
			line("  %s", colorize(dim, fmt.Sprintf("... %d more", len(st.Logs)-maxLogs)))
			break
		}
		line("  %s", formatLogLine(e))
	}
	line("")

	io.WriteString(w, b.String())
}

const dashboardHelp = `
  COMMANDS
    auto | maint | stop | reset     control the conveyor
    reload                          refetch logs, zones and status
    zones                           refetch zones
    config | exit                   open or close the zone editor
    create | update | view          set the editor action
    select [ID]                     load a zone into the editor
    name TEXT                       set the draft name
    point X Y                       add a ratio point (0..1)
    undo | clear                    drop the last point or all points
    save                            create or update from the draft
    delete [ID]                     delete a zone (default: selected)
    size WxH                        set the video frame size
    dismiss                         hide the error popup
    help | quit
`
