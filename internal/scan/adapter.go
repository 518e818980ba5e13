package scan

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/bluetooth"

	"github.com/storskegg/ble-roster/internal/logging"
	"github.com/storskegg/ble-roster/internal/roster"
)

// Adapter scans with the host Bluetooth controller.
type Adapter struct {
	adapter *bluetooth.Adapter
	buf     buffer
	conn    *ConnectionState

	mu       sync.Mutex
	scanning bool
	done     chan struct{}
}

func NewAdapter() *Adapter {
	return &Adapter{
		adapter: bluetooth.DefaultAdapter,
		conn:    NewConnectionState("bluetooth"),
	}
}

// Start enables the adapter and runs a passive scan on its own goroutine.
// Scan blocks until StopScan, which Close or ctx cancellation calls.
func (a *Adapter) Start(ctx context.Context) error {
	if err := a.adapter.Enable(); err != nil {
		a.conn.SetError(err)
		return fmt.Errorf("%w: %w", ErrNoAdapter, err)
	}

	a.mu.Lock()
	a.scanning = true
	a.done = make(chan struct{})
	a.mu.Unlock()
	a.conn.SetConnected(true)
	logging.LogSourceState("bluetooth", true, nil)

	go func() {
		defer close(a.done)
		err := a.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			a.buf.put(observationFromResult(result))
		})
		a.conn.SetConnected(false)
		if err != nil {
			a.conn.SetError(err)
			logging.Warn("Bluetooth scan stopped", zap.Error(err))
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = a.stop()
		case <-a.done:
		}
	}()
	return nil
}

func (a *Adapter) Drain() []roster.Observation { return a.buf.drain() }

func (a *Adapter) Status() Status { return a.conn.Status() }

func (a *Adapter) Close() error {
	err := a.stop()
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done != nil {
		<-done
	}
	return err
}

func (a *Adapter) stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.scanning {
		return nil
	}
	a.scanning = false
	return a.adapter.StopScan()
}

// observationFromResult extracts the roster fields of a scan result.
// Appearance and list-advertised service UUIDs come from the raw payload
// where the platform exposes it.
func observationFromResult(result bluetooth.ScanResult) roster.Observation {
	o := roster.Observation{
		Address: result.Address.String(),
		Name:    result.LocalName(),
		RSSI:    int(result.RSSI),
	}

	if raw := result.Bytes(); len(raw) > 0 {
		f := parseAD(raw)
		o.Metadata.Appearance = f.Appearance
		o.Metadata.Services = f.Services
	}

	for _, sd := range result.ServiceData() {
		o.Metadata.Services = appendUnique(o.Metadata.Services, sd.UUID.String())
	}

	if mfr := result.ManufacturerData(); len(mfr) > 0 {
		o.Metadata.Manufacturer = &roster.Manufacturer{
			ID:      mfr[0].CompanyID,
			Payload: mfr[0].Data,
		}
	}
	return o
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
