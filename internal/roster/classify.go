package roster

import (
	"strings"
	"time"
)

// Activity is the classification of a device by time since last observation.
type Activity int

const (
	Active Activity = iota
	Inactive
)

func (a Activity) String() string {
	if a == Inactive {
		return "inactive"
	}
	return "active"
}

// Bar glyphs
const (
	glyphFilled = "█"
	glyphEmpty  = "░"
	glyphStale  = "·"
)

// Classify returns Active when lastSeen is within threshold of now.
func Classify(now, lastSeen time.Time, threshold time.Duration) Activity {
	if now.Sub(lastSeen) <= threshold {
		return Active
	}
	return Inactive
}

// SignalBar maps an RSSI reading to a bar of width glyphs. Readings are
// clamped to [-100, 0] dBm and scaled linearly, rounding filled segments up.
func SignalBar(rssi int, width int) string {
	if width <= 0 {
		return ""
	}
	strength := min(100, max(0, 100+rssi))
	filled := (strength*width + 99) / 100
	return strings.Repeat(glyphFilled, filled) + strings.Repeat(glyphEmpty, width-filled)
}

// StaleBar is the bar drawn for inactive devices regardless of last signal.
func StaleBar(width int) string {
	if width <= 0 {
		return ""
	}
	return strings.Repeat(glyphStale, width)
}

// Bar picks SignalBar or StaleBar for the given activity.
func Bar(rssi int, activity Activity, width int) string {
	if activity == Inactive {
		return StaleBar(width)
	}
	return SignalBar(rssi, width)
}
