// Package gps reads an optional NMEA receiver and keeps the current fix so
// that observations can be stamped with the scanner's position.
package gps

import (
	"sync"
	"time"

	"github.com/storskegg/ble-roster/internal/roster"
)

// Status is the receiver lifecycle.
type Status int

const (
	NoGPS Status = iota
	Detecting
	Failed
	NoFix
	Fix
)

func (s Status) String() string {
	switch s {
	case Detecting:
		return "detecting"
	case Failed:
		return "failed"
	case NoFix:
		return "no fix"
	case Fix:
		return "fix"
	}
	return "no gps"
}

// Info is a snapshot of LocationState for display.
type Info struct {
	Status           Status
	FixQuality       int
	Satellites       int
	SatellitesInView int
	Connected        bool
	Attempts         int
	LastUpdate       time.Time
}

// LocationState manages the current GPS/GNSS location in a thread-safe manner
type LocationState struct {
	mu               sync.RWMutex
	current          *roster.Location
	lastUpdate       time.Time
	fixQuality       int // 0 = no fix, 1 = GPS fix, 2 = DGPS fix, etc.
	satellites       int // in use
	satellitesInView int // across all constellations
	status           Status
	connected        bool
	attempts         int
}

func NewLocationState() *LocationState {
	return &LocationState{status: NoGPS}
}

// SetCurrent records a fix.
func (ls *LocationState) SetCurrent(loc roster.Location, fixQuality, satellites, satellitesInView int) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.current = &loc
	ls.lastUpdate = loc.Time
	ls.fixQuality = fixQuality
	ls.satellites = satellites
	ls.satellitesInView = satellitesInView

	if fixQuality > 0 {
		ls.status = Fix
	} else {
		ls.status = NoFix
	}
}

// Current returns a copy of the current fix, or nil without one.
func (ls *LocationState) Current() *roster.Location {
	if ls == nil {
		return nil
	}
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	if ls.current == nil || ls.status != Fix {
		return nil
	}
	loc := *ls.current
	return &loc
}

func (ls *LocationState) SetStatus(status Status) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.status = status
}

func (ls *LocationState) SetConnected(connected bool) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.connected = connected
	if connected {
		ls.attempts = 0
	}
}

// ReconnectAttempt increments the reconnection attempt counter
func (ls *LocationState) ReconnectAttempt() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.attempts++
}

func (ls *LocationState) Info() Info {
	if ls == nil {
		return Info{Status: NoGPS}
	}
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return Info{
		Status:           ls.status,
		FixQuality:       ls.fixQuality,
		Satellites:       ls.satellites,
		SatellitesInView: ls.satellitesInView,
		Connected:        ls.connected,
		Attempts:         ls.attempts,
		LastUpdate:       ls.lastUpdate,
	}
}
