package roster

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Placeholders shown when an advertisement lacks a field.
const (
	unknownName        = "Unknown"
	unknownAppearance  = "Unknown"
	noServices         = "No services"
	noManufacturerData = "No manufacturer data"
)

const (
	serviceIDWidth     = 8
	servicesWidth      = 40
	manufacturerHexLen = 20
)

// Common GAP appearance values
var appearances = map[uint16]string{
	0:   "Unknown",
	64:  "Generic Phone",
	128: "Generic Computer",
	192: "Generic Watch",
	193: "Sports Watch",
	256: "Generic Tag",
	832: "Generic Heart Rate Sensor",
	960: "Generic Blood Pressure",
}

// FormatAppearance names the appearance code, or "Unknown".
func FormatAppearance(m Metadata) string {
	if m.Appearance == nil {
		return unknownAppearance
	}
	if name, ok := appearances[*m.Appearance]; ok {
		return name
	}
	return unknownAppearance
}

// FormatServices lists the leading characters of each service UUID.
func FormatServices(m Metadata) string {
	if len(m.Services) == 0 {
		return noServices
	}
	ids := make([]string, len(m.Services))
	for i, uuid := range m.Services {
		ids[i] = truncate(uuid, serviceIDWidth)
	}
	return truncate(strings.Join(ids, ", "), servicesWidth)
}

// FormatManufacturer shows the company ID and the head of the payload.
func FormatManufacturer(m Metadata) string {
	if m.Manufacturer == nil {
		return noManufacturerData
	}
	payload := truncate(hex.EncodeToString(m.Manufacturer.Payload), manufacturerHexLen)
	return fmt.Sprintf("ID: %04x, Data: %s", m.Manufacturer.ID, payload)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
