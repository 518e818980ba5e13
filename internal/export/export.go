// Package export writes operator-triggered snapshots of the roster as JSON
// and, when any device carries a GPS fix, as KML.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/storskegg/ble-roster/internal/roster"
)

const timestampLayout = "2006-01-02_15-04-05"

// Result names the files written by Snapshot.
type Result struct {
	JSONPath string
	KMLPath  string // empty when no device had a fix
	Devices  int
	Located  int
}

// Snapshot writes ble_devices_<timestamp>.json, and the matching .kml when
// any device has a fix, into dir.
func Snapshot(dir string, now time.Time, devices []roster.DeviceRecord) (Result, error) {
	res := Result{Devices: len(devices)}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create export directory: %w", err)
	}

	prefix := filepath.Join(dir, "ble_devices_"+now.Format(timestampLayout))

	jsonPath := findNonCollidingFilename(prefix, ".json")
	if err := writeFile(jsonPath, func(w io.Writer) error {
		return WriteJSON(w, now, devices)
	}); err != nil {
		return res, err
	}
	res.JSONPath = jsonPath

	for _, d := range devices {
		if d.BestFix != nil {
			res.Located++
		}
	}
	if res.Located == 0 {
		return res, nil
	}

	kmlPath := findNonCollidingFilename(prefix, ".kml")
	if err := writeFile(kmlPath, func(w io.Writer) error {
		return WriteKML(w, now, devices)
	}); err != nil {
		return res, err
	}
	res.KMLPath = kmlPath
	return res, nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()
	if err := write(file); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// findNonCollidingFilename appends -1, -2, ... until the name is free.
func findNonCollidingFilename(prefix, ext string) string {
	path := prefix + ext
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	for i := 1; i < 10000; i++ {
		path = fmt.Sprintf("%s-%d%s", prefix, i, ext)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
	}

	return fmt.Sprintf("%s-%d%s", prefix, time.Now().UnixNano(), ext)
}
