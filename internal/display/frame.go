// Package display builds screen frames from roster and viewport state and
// hands them to a terminal backend.
//
// Build is pure: it reads a Model and returns a Frame without touching the
// terminal. Backends own every escape sequence and screen call.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/storskegg/ble-roster/internal/gps"
	"github.com/storskegg/ble-roster/internal/roster"
	"github.com/storskegg/ble-roster/internal/scan"
	"github.com/storskegg/ble-roster/internal/viewport"
)

// Style is the presentation class of a line.
type Style int

const (
	Plain Style = iota
	Selected
	Dim
	Header
	Status
)

// Line is one screen row.
type Line struct {
	Text  string
	Style Style
}

// Frame is a full screen. Lines[HeaderRows:len(Lines)-1] is the scrolling
// roster area; the last line is the status line.
type Frame struct {
	Width      int
	Lines      []Line
	HeaderRows int
}

// Rows above and below the roster area.
const (
	headerRows = 2
	footerRows = 1
)

// ContentHeight is the number of roster lines that fit a terminal height.
func ContentHeight(height int) int {
	return max(1, height-headerRows-footerRows)
}

// ScrollRegion returns the 1-based terminal rows of the roster area.
func ScrollRegion(height int) (top, bottom int) {
	return headerRows + 1, headerRows + ContentHeight(height)
}

// Model is everything a frame shows.
type Model struct {
	Now    time.Time
	Width  int
	Height int

	Entries  []roster.Entry // active ++ inactive
	Active   int
	Offset   int
	Selected int // index into Entries, -1 for none
	View     viewport.View
	SortMode roster.SortMode

	Paused bool
	Source scan.Status
	GPS    gps.Info
	Fix    *roster.Location
	Notice string

	BarWidth  int
	NameWidth int
}

const addrWidth = 17

// Build lays out a frame for m.
func Build(m Model) Frame {
	width := max(1, m.Width)
	height := ContentHeight(m.Height)
	f := Frame{Width: width, HeaderRows: headerRows}

	f.Lines = append(f.Lines, Line{Text: fit(title(m), width), Style: Header})

	var body []Line
	if m.View == viewport.Detail && m.Selected >= 0 && m.Selected < len(m.Entries) {
		f.Lines = append(f.Lines, Line{Text: fit("Device detail  (Enter/q: back)", width), Style: Header})
		body = detailLines(m, m.Entries[m.Selected])
	} else {
		f.Lines = append(f.Lines, Line{Text: fit(columnHeader(m), width), Style: Header})
		body = listLines(m, height)
	}

	for i := 0; i < height; i++ {
		l := Line{Style: Plain}
		if i < len(body) {
			l = body[i]
		}
		l.Text = fit(l.Text, width)
		f.Lines = append(f.Lines, l)
	}

	f.Lines = append(f.Lines, Line{Text: fit(statusText(m), width), Style: Status})
	return f
}

func title(m Model) string {
	inactive := len(m.Entries) - m.Active
	return fmt.Sprintf("BLE Device Roster | sort: %s | %d active, %d inactive",
		m.SortMode, m.Active, inactive)
}

func columnHeader(m Model) string {
	return fmt.Sprintf("%s | %s | %s | RSSI",
		runewidth.FillRight("Device Name", m.NameWidth),
		runewidth.FillRight("Address", addrWidth),
		runewidth.FillRight("Signal", m.BarWidth),
	)
}

func listLines(m Model, height int) []Line {
	if len(m.Entries) == 0 {
		return []Line{{Text: "Scanning for devices...", Style: Dim}}
	}

	end := min(len(m.Entries), m.Offset+height)
	lines := make([]Line, 0, end-m.Offset)
	for i := max(0, m.Offset); i < end; i++ {
		e := m.Entries[i]
		style := Plain
		if e.Activity == roster.Inactive {
			style = Dim
		}
		if i == m.Selected {
			style = Selected
		}
		lines = append(lines, Line{Text: row(m, e), Style: style})
	}
	return lines
}

func row(m Model, e roster.Entry) string {
	d := e.Device
	name := runewidth.FillRight(runewidth.Truncate(d.DisplayName(), m.NameWidth, ""), m.NameWidth)
	addr := runewidth.FillRight(d.Address, addrWidth)
	bar := roster.Bar(d.RSSI, e.Activity, m.BarWidth)
	return fmt.Sprintf("%s | %s | %s | %d dBm", name, addr, bar, d.RSSI)
}

func detailLines(m Model, e roster.Entry) []Line {
	d := e.Device
	lines := []Line{
		{Text: "Device: " + d.DisplayName()},
		{Text: "Address: " + d.Address},
		{Text: fmt.Sprintf("Signal: %s (%d dBm, %s)", roster.Bar(d.RSSI, e.Activity, m.BarWidth), d.RSSI, e.Activity)},
		{Text: "Type: " + roster.FormatAppearance(d.Metadata)},
		{Text: "Services: " + roster.FormatServices(d.Metadata)},
		{Text: "Manufacturer: " + roster.FormatManufacturer(d.Metadata)},
		{Text: "First seen: " + d.FirstSeen.Local().Format(time.DateTime)},
		{Text: fmt.Sprintf("Last seen: %s (%s ago)", d.LastSeen.Local().Format(time.DateTime), ago(m.Now, d.LastSeen))},
		{Text: fmt.Sprintf("Observations: %d", d.Count)},
	}
	if f := d.BestFix; f != nil {
		lines = append(lines, Line{Text: fmt.Sprintf("Best fix: %.5f, %.5f at %d dBm", f.Latitude, f.Longitude, d.BestRSSI)})
	} else {
		lines = append(lines, Line{Text: "Best fix: none"})
	}
	return lines
}

func ago(now, t time.Time) time.Duration {
	return max(0, now.Sub(t)).Round(time.Second)
}

func statusText(m Model) string {
	parts := []string{"↑↓ PgUp/PgDn Home/End | Enter: detail | s: sort | p: pause | c: clear | e: export | Ctrl-C: quit"}
	if m.Paused {
		parts = append(parts, "[PAUSED]")
	}
	if m.Source.Name != "" {
		parts = append(parts, m.Source.String())
	}
	if g := gpsText(m.GPS, m.Fix); g != "" {
		parts = append(parts, g)
	}
	if len(m.Entries) > 0 && m.Selected >= 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", m.Selected+1, len(m.Entries)))
	}
	if m.Notice != "" {
		parts = append(parts, m.Notice)
	}
	return strings.Join(parts, " | ")
}

func gpsText(info gps.Info, fix *roster.Location) string {
	switch info.Status {
	case gps.Detecting:
		return "GPS: detecting"
	case gps.Failed:
		return "GPS: FAILED"
	case gps.NoFix:
		return fmt.Sprintf("GPS: no fix (%d / %d)", info.SatellitesInView, info.Satellites)
	case gps.Fix:
		if fix != nil {
			return fmt.Sprintf("GPS: %.4f, %.4f Q:%d", fix.Latitude, fix.Longitude, info.FixQuality)
		}
		return fmt.Sprintf("GPS: fix Q:%d", info.FixQuality)
	}
	return ""
}

// fit truncates or pads s to exactly width terminal cells.
func fit(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, ""), width)
}
