package roster

import (
	"fmt"
	"sort"
	"time"
)

// SortMode selects the ordering of the active group.
type SortMode int

const (
	ByDiscoveryTime SortMode = iota
	BySignalStrength
)

func (m SortMode) String() string {
	switch m {
	case BySignalStrength:
		return "signal"
	default:
		return "discovery"
	}
}

// Toggle returns the other sort mode.
func (m SortMode) Toggle() SortMode {
	if m == BySignalStrength {
		return ByDiscoveryTime
	}
	return BySignalStrength
}

// ParseSortMode accepts "signal" or "discovery".
func ParseSortMode(s string) (SortMode, error) {
	switch s {
	case "signal", "rssi":
		return BySignalStrength, nil
	case "discovery", "first-seen", "":
		return ByDiscoveryTime, nil
	default:
		return ByDiscoveryTime, fmt.Errorf("unknown sort mode %q", s)
	}
}

// Entry is a device placed in the roster for one refresh cycle.
type Entry struct {
	Address  string
	Device   *DeviceRecord
	Activity Activity
}

// Sort partitions the registry into active and inactive groups.
//
// Active devices are ordered by mode: strongest signal first, or earliest
// discovery first. Inactive devices are always ordered most recently lost
// first. Ties fall back to the address so the result is deterministic.
func Sort(r *Registry, now time.Time, mode SortMode, inactiveThreshold time.Duration) (active, inactive []Entry) {
	for addr, dev := range r.devices {
		e := Entry{
			Address:  addr,
			Device:   dev,
			Activity: Classify(now, dev.LastSeen, inactiveThreshold),
		}
		if e.Activity == Active {
			active = append(active, e)
		} else {
			inactive = append(inactive, e)
		}
	}

	switch mode {
	case BySignalStrength:
		sort.Slice(active, func(i, j int) bool {
			if active[i].Device.RSSI != active[j].Device.RSSI {
				return active[i].Device.RSSI > active[j].Device.RSSI
			}
			return active[i].Address < active[j].Address
		})
	default:
		sort.Slice(active, func(i, j int) bool {
			ti, tj := active[i].Device.FirstSeen, active[j].Device.FirstSeen
			if !ti.Equal(tj) {
				return ti.Before(tj)
			}
			return active[i].Address < active[j].Address
		})
	}

	sort.Slice(inactive, func(i, j int) bool {
		ti, tj := inactive[i].Device.LastSeen, inactive[j].Device.LastSeen
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return inactive[i].Address < inactive[j].Address
	})

	return active, inactive
}

// Join returns the displayed sequence: active entries followed by inactive.
func Join(active, inactive []Entry) []Entry {
	result := make([]Entry, 0, len(active)+len(inactive))
	result = append(result, active...)
	result = append(result, inactive...)
	return result
}
