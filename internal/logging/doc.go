// Package logging provides structured diagnostics for ble_monitor.
//
// This package wraps a zap logger with package-level helpers. The roster
// display owns the terminal, so output always goes to a file.
//
// # Log Levels
//
//   - Debug: per-cycle detail (evictions, decoded keys)
//   - Info: source connects, exports, audit blocks
//   - Warn: transient scan, render and audit failures
//   - Error: startup failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize(cfg.Logging.Level, cfg.Logging.Path); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// An empty level (and no BLE_ROSTER_LOG_LEVEL) installs a no-op logger.
package logging
