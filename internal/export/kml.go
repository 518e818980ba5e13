package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/twpayne/go-kml/v3"

	"github.com/storskegg/ble-roster/internal/roster"
)

// rssiStyles are the shared placemark styles, strongest first.
var rssiStyles = []struct {
	id    string
	above int
	color color.RGBA
}{
	{"rssi-blue", -50, color.RGBA{R: 0x00, G: 0x00, B: 0xff, A: 0xff}},
	{"rssi-green", -60, color.RGBA{R: 0x00, G: 0xff, B: 0x00, A: 0xff}},
	{"rssi-yellow", -70, color.RGBA{R: 0xff, G: 0xff, B: 0x00, A: 0xff}},
	{"rssi-orange", -80, color.RGBA{R: 0xff, G: 0x80, B: 0x00, A: 0xff}},
	{"rssi-red", math.MinInt, color.RGBA{R: 0xff, G: 0x00, B: 0x00, A: 0xff}},
}

// styleURLForRSSI returns the style URL reference for a given RSSI
func styleURLForRSSI(rssi int) string {
	for _, s := range rssiStyles {
		if rssi > s.above {
			return "#" + s.id
		}
	}
	return "#" + rssiStyles[len(rssiStyles)-1].id
}

func sharedStyles() []kml.Element {
	out := make([]kml.Element, 0, len(rssiStyles)+1)
	for _, s := range rssiStyles {
		out = append(out, kml.SharedStyle(s.id,
			kml.IconStyle(kml.Color(s.color)),
		))
	}
	out = append(out, kml.SharedStyle("session-boundary",
		kml.LineStyle(kml.Color(color.RGBA{R: 0xff, A: 0x80}), kml.Width(4)),
		kml.PolyStyle(kml.Color(color.RGBA{R: 0xff, A: 0x40})),
	))
	return out
}

// buildDeviceDescription creates the HTML description of a placemark.
func buildDeviceDescription(d *roster.DeviceRecord) string {
	var html strings.Builder
	item := func(label, value string) {
		fmt.Fprintf(&html, "<li><strong>%s:</strong> %s</li>", label, value)
	}

	html.WriteString("<ul>")
	item("Last Seen", d.LastSeen.Format("2006-01-02 15:04:05"))
	item("Count", fmt.Sprintf("%d", d.Count))
	item("MAC Address", d.Address)
	item("Signal", fmt.Sprintf("%d dBm (best %d dBm)", d.RSSI, d.BestRSSI))
	item("Device Name", d.DisplayName())
	item("Type", roster.FormatAppearance(d.Metadata))
	item("Services", roster.FormatServices(d.Metadata))
	item("Manufacturer", roster.FormatManufacturer(d.Metadata))
	html.WriteString("</ul>")

	return html.String()
}

func coordinate(loc roster.Location) kml.Coordinate {
	return kml.Coordinate{Lon: loc.Longitude, Lat: loc.Latitude, Alt: loc.Elevation}
}

// WriteKML writes one point per located device at its best fix, plus the
// session boundary when three or more fixes exist.
func WriteKML(w io.Writer, now time.Time, devices []roster.DeviceRecord) error {
	var points []kml.Element
	var fixes []roster.Location

	for i := range devices {
		d := &devices[i]
		if d.BestFix == nil {
			continue
		}
		fixes = append(fixes, *d.BestFix)
		points = append(points, kml.Placemark(
			kml.Name(d.Address),
			kml.Description(buildDeviceDescription(d)),
			kml.StyleURL(styleURLForRSSI(d.BestRSSI)),
			kml.Point(kml.Coordinates(coordinate(*d.BestFix))),
		))
	}

	docElements := []kml.Element{
		kml.Name(fmt.Sprintf("BLE Devices - %s", now.Format("2006-01-02 15:04:05"))),
	}
	docElements = append(docElements, sharedStyles()...)

	if len(points) > 0 {
		folder := append([]kml.Element{kml.Name("Points")}, points...)
		docElements = append(docElements, kml.Folder(folder...))
	}
	if boundary := sessionBoundary(now, fixes); boundary != nil {
		docElements = append(docElements, kml.Folder(kml.Name("Session Boundary"), boundary))
	}

	doc := kml.KML(kml.Document(docElements...))
	if err := doc.WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

// sessionBoundary is the convex hull of every fix, or nil with fewer than
// three distinct corners.
func sessionBoundary(now time.Time, fixes []roster.Location) kml.Element {
	hull := convexHull(fixes)
	if len(hull) < 3 {
		return nil
	}

	coords := make([]kml.Coordinate, len(hull)+1)
	for i, loc := range hull {
		coords[i] = coordinate(loc)
	}
	coords[len(hull)] = coords[0]

	description := fmt.Sprintf(
		"<ul><li><strong>Total Points:</strong> %d</li><li><strong>Boundary Points:</strong> %d</li><li><strong>Session Time:</strong> %s</li></ul>",
		len(fixes),
		len(hull),
		now.Format("2006-01-02 15:04:05"),
	)

	return kml.Placemark(
		kml.Name("Session Area"),
		kml.Description(description),
		kml.StyleURL("#session-boundary"),
		kml.Polygon(
			kml.OuterBoundaryIs(
				kml.LinearRing(
					kml.Coordinates(coords...),
				),
			),
		),
	)
}

// convexHull returns the hull of points in counter-clockwise order using a
// Graham scan. Collinear and duplicate points are dropped.
func convexHull(points []roster.Location) []roster.Location {
	if len(points) < 3 {
		return slices.Clone(points)
	}

	pts := slices.Clone(points)

	// pivot: lowest latitude, leftmost on ties
	lowest := 0
	for i := 1; i < len(pts); i++ {
		if pts[i].Latitude < pts[lowest].Latitude ||
			(pts[i].Latitude == pts[lowest].Latitude && pts[i].Longitude < pts[lowest].Longitude) {
			lowest = i
		}
	}
	pts[0], pts[lowest] = pts[lowest], pts[0]
	pivot := pts[0]

	rest := pts[1:]
	slices.SortFunc(rest, func(a, b roster.Location) int {
		aa, ab := polarAngle(pivot, a), polarAngle(pivot, b)
		switch {
		case aa < ab:
			return -1
		case aa > ab:
			return 1
		}
		da, db := dist2(pivot, a), dist2(pivot, b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
		return 0
	})

	hull := []roster.Location{pivot}
	for _, p := range rest {
		if p.Latitude == pivot.Latitude && p.Longitude == pivot.Longitude {
			continue
		}
		for len(hull) > 1 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull
}

// cross is positive when p1, p2, p3 make a counter-clockwise turn.
func cross(p1, p2, p3 roster.Location) float64 {
	return (p2.Longitude-p1.Longitude)*(p3.Latitude-p1.Latitude) -
		(p2.Latitude-p1.Latitude)*(p3.Longitude-p1.Longitude)
}

func polarAngle(pivot, p roster.Location) float64 {
	return math.Atan2(p.Latitude-pivot.Latitude, p.Longitude-pivot.Longitude)
}

func dist2(a, b roster.Location) float64 {
	dx, dy := b.Longitude-a.Longitude, b.Latitude-a.Latitude
	return dx*dx + dy*dy
}
