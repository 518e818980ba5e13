// Package config loads ble_monitor settings.
//
// Settings come from built-in defaults, an optional YAML file and
// BLE_ROSTER_* environment variables, in that order. Command-line flags are
// applied on top by the caller. Durations are written as Go duration
// strings:
//
//	roster:
//	  inactive_threshold: 15s
//	  device_timeout: 1m
//	display:
//	  backend: tcell
//	  render_interval: 250ms
package config
