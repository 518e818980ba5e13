package roster

import "time"

// Registry stores devices indexed by address.
//
// A Registry is owned by the refresh loop and is not safe for concurrent use;
// callers that share it across goroutines guard a whole cycle with one lock.
type Registry struct {
	devices map[string]*DeviceRecord
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices: make(map[string]*DeviceRecord),
	}
}

// Apply inserts or updates the record for obs.Address. It reports whether
// the address was new to the registry.
func (r *Registry) Apply(obs Observation, now time.Time) bool {
	if obs.Address == "" {
		return false
	}

	existing, exists := r.devices[obs.Address]
	if !exists {
		rec := &DeviceRecord{
			Address:   obs.Address,
			FirstSeen: now,
			LastSeen:  now,
			BestRSSI:  obs.RSSI,
		}
		rec.update(obs, now)
		r.devices[obs.Address] = rec
		return true
	}

	existing.update(obs, now)
	return false
}

// update overwrites every field except FirstSeen. LastSeen never moves
// backwards.
func (d *DeviceRecord) update(obs Observation, now time.Time) {
	d.Name = obs.Name
	d.RSSI = obs.RSSI
	d.Metadata = obs.Metadata
	if now.After(d.LastSeen) {
		d.LastSeen = now
	}
	d.Count++

	if obs.Location != nil && (d.BestFix == nil || obs.RSSI >= d.BestRSSI) {
		loc := *obs.Location
		d.BestFix = &loc
		d.BestRSSI = obs.RSSI
	}
}

// Evict removes every record not seen within timeout of now and returns how
// many were removed.
func (r *Registry) Evict(now time.Time, timeout time.Duration) int {
	removed := 0
	for addr, dev := range r.devices {
		if now.Sub(dev.LastSeen) > timeout {
			delete(r.devices, addr)
			removed++
		}
	}
	return removed
}

// Get returns the record for addr.
func (r *Registry) Get(addr string) (*DeviceRecord, bool) {
	dev, ok := r.devices[addr]
	return dev, ok
}

// Len returns the number of tracked devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// Snapshot returns copies of all records in no particular order.
func (r *Registry) Snapshot() []DeviceRecord {
	out := make([]DeviceRecord, 0, len(r.devices))
	for _, dev := range r.devices {
		out = append(out, *dev)
	}
	return out
}

// Clear drops every record.
func (r *Registry) Clear() {
	r.devices = make(map[string]*DeviceRecord)
}
