// Package roster holds the time-windowed device registry and the pure
// functions that classify, order and decorate its records for display.
package roster

import "time"

// Location is a GPS fix attached to an observation.
type Location struct {
	Latitude  float64
	Longitude float64
	Elevation float64
	Time      time.Time
}

// Manufacturer is the first manufacturer-specific data element of an
// advertisement.
type Manufacturer struct {
	ID      uint16
	Payload []byte
}

// Metadata is the advertisement bundle of a device. Every field is optional;
// nil means the advertisement did not carry it.
type Metadata struct {
	Appearance   *uint16
	Services     []string
	Manufacturer *Manufacturer
}

// Observation is one scan result for a device at a point in time.
type Observation struct {
	Address  string
	Name     string
	RSSI     int
	Metadata Metadata

	// Location is the receiver position when the observation was taken,
	// nil when no GPS fix is available.
	Location *Location
}

// DeviceRecord represents a Bluetooth LE device tracked by the registry.
type DeviceRecord struct {
	Address   string
	Name      string
	RSSI      int
	Metadata  Metadata
	LastSeen  time.Time
	FirstSeen time.Time
	Count     int

	// BestFix is the receiver position at the strongest RSSI seen so far.
	BestFix  *Location
	BestRSSI int
}

// DisplayName returns the advertised name or "Unknown".
func (d *DeviceRecord) DisplayName() string {
	if d.Name == "" {
		return unknownName
	}
	return d.Name
}
