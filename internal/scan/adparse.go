package scan

import (
	"encoding/binary"

	"tinygo.org/x/bluetooth"
)

// AD structure types carried in raw advertisement payloads.
const (
	adIncomplete16  = 0x02
	adComplete16    = 0x03
	adIncomplete32  = 0x04
	adComplete32    = 0x05
	adIncomplete128 = 0x06
	adComplete128   = 0x07
	adAppearance    = 0x19
)

// adFields are the fields extracted from a raw advertisement.
type adFields struct {
	Appearance *uint16
	Services   []string
}

// parseAD walks the length-type-value structures of a raw advertisement.
// Truncated structures end the walk; whatever was parsed before is kept.
func parseAD(raw []byte) adFields {
	var f adFields
	for len(raw) > 0 {
		n := int(raw[0])
		if n == 0 || n+1 > len(raw) {
			break
		}
		typ, data := raw[1], raw[2:n+1]
		raw = raw[n+1:]

		switch typ {
		case adAppearance:
			if len(data) >= 2 {
				v := binary.LittleEndian.Uint16(data)
				f.Appearance = &v
			}
		case adIncomplete16, adComplete16:
			for ; len(data) >= 2; data = data[2:] {
				f.Services = append(f.Services, bluetooth.New16BitUUID(binary.LittleEndian.Uint16(data)).String())
			}
		case adIncomplete32, adComplete32:
			for ; len(data) >= 4; data = data[4:] {
				f.Services = append(f.Services, bluetooth.New32BitUUID(binary.LittleEndian.Uint32(data)).String())
			}
		case adIncomplete128, adComplete128:
			for ; len(data) >= 16; data = data[16:] {
				f.Services = append(f.Services, uuid128(data[:16]).String())
			}
		}
	}
	return f
}

// uuid128 converts a little-endian 128-bit UUID.
func uuid128(le []byte) bluetooth.UUID {
	var b [16]byte
	for i := range b {
		b[i] = le[15-i]
	}
	return bluetooth.NewUUID(b)
}
