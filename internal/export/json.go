package export

import (
	"encoding/hex"
	"io"
	"time"

	json "github.com/goccy/go-json"

	"github.com/storskegg/ble-roster/internal/roster"
)

type document struct {
	ExportedAt time.Time `json:"exported_at"`
	Devices    []device  `json:"devices"`
}

type device struct {
	Address      string    `json:"mac_address"`
	Name         string    `json:"device_name,omitempty"`
	RSSI         int       `json:"rssi"`
	BestRSSI     int       `json:"best_rssi"`
	Appearance   *uint16   `json:"appearance,omitempty"`
	Type         string    `json:"type"`
	ServiceUUIDs []string  `json:"service_uuids,omitempty"`
	MfrCode      *uint16   `json:"mfr_code,omitempty"`
	MfrData      string    `json:"mfr_data,omitempty"`
	FirstSeen    time.Time `json:"first_seen"`
	LastSeen     time.Time `json:"last_seen"`
	Count        int       `json:"count"`
	Location     *location `json:"location,omitempty"`
}

type location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Elevation float64   `json:"elevation"`
	Time      time.Time `json:"time"`
}

// WriteJSON encodes devices in the order given.
func WriteJSON(w io.Writer, now time.Time, devices []roster.DeviceRecord) error {
	doc := document{ExportedAt: now.UTC(), Devices: make([]device, 0, len(devices))}
	for _, d := range devices {
		out := device{
			Address:      d.Address,
			Name:         d.Name,
			RSSI:         d.RSSI,
			BestRSSI:     d.BestRSSI,
			Appearance:   d.Metadata.Appearance,
			Type:         roster.FormatAppearance(d.Metadata),
			ServiceUUIDs: d.Metadata.Services,
			FirstSeen:    d.FirstSeen.UTC(),
			LastSeen:     d.LastSeen.UTC(),
			Count:        d.Count,
		}
		if m := d.Metadata.Manufacturer; m != nil {
			id := m.ID
			out.MfrCode = &id
			out.MfrData = hex.EncodeToString(m.Payload)
		}
		if f := d.BestFix; f != nil {
			out.Location = &location{
				Latitude:  f.Latitude,
				Longitude: f.Longitude,
				Elevation: f.Elevation,
				Time:      f.Time.UTC(),
			}
		}
		doc.Devices = append(doc.Devices, out)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}
