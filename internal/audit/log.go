// Package audit writes the append-only scan log: a header row once per file
// and one numbered block per flush listing every tracked device.
package audit

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/storskegg/ble-roster/internal/roster"
)

const (
	timeLayout = "2006-01-02T15:04:05.000Z07:00"
	rowFormat  = "%-29s  %-20s  %-17s  %s\n"
)

// Log appends scan blocks to a flat file. Block numbers start at 1 and are
// monotonic for the life of the Log.
type Log struct {
	mu    sync.Mutex
	path  string
	block int
}

// New returns a Log writing to path. The file is created on first flush.
func New(path string) *Log {
	return &Log{path: path}
}

// Path is the file being written.
func (l *Log) Path() string { return l.path }

// Blocks returns the number of blocks written so far.
func (l *Log) Blocks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.block
}

// Flush appends one block holding a row per device. A failed flush does not
// consume a block number.
func (l *Log) Flush(now time.Time, devices []roster.DeviceRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat audit log: %w", err)
	}

	n := l.block + 1
	w := bufio.NewWriter(f)
	if info.Size() == 0 {
		fmt.Fprintf(w, rowFormat, "TIMESTAMP", "NAME", "ADDRESS", "SIGNAL")
	}
	fmt.Fprintf(w, "BEGIN SCAN BLOCK %d %s\n", n, now.UTC().Format(timeLayout))
	for _, d := range devices {
		fmt.Fprintf(w, rowFormat,
			d.LastSeen.UTC().Format(timeLayout),
			d.DisplayName(),
			d.Address,
			fmt.Sprintf("%d dBm", d.RSSI),
		)
	}
	fmt.Fprintf(w, "END SCAN BLOCK %d\n", n)

	if err := w.Flush(); err != nil {
		return fmt.Errorf("write audit block %d: %w", n, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync audit log: %w", err)
	}
	l.block = n
	return nil
}
