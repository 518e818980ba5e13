// Package scan provides the observation sources feeding the roster: the
// host Bluetooth adapter and a JSON-lines sniffer feed over a serial port
// or stdin.
//
// Sources run their own listener goroutines and buffer the latest
// observation per address until the refresh loop drains them.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/storskegg/ble-roster/internal/roster"
)

// ErrNoAdapter is returned by Start when no usable Bluetooth adapter exists.
var ErrNoAdapter = errors.New("bluetooth adapter unavailable")

// Source is a producer of scan observations.
type Source interface {
	// Start begins listening. It returns once the listener is running.
	Start(ctx context.Context) error
	// Drain returns and forgets everything buffered since the last call.
	Drain() []roster.Observation
	Status() Status
	Close() error
}

// Status is a snapshot of a source's connection state.
type Status struct {
	Name        string
	Connected   bool
	Attempts    int
	LastError   error
	LastErrorAt time.Time
}

func (s Status) String() string {
	switch {
	case s.Connected:
		return s.Name + ": connected"
	case s.Attempts > 0:
		return fmt.Sprintf("%s: reconnecting (attempt %d)", s.Name, s.Attempts)
	default:
		return s.Name + ": disconnected"
	}
}

// buffer keeps the latest observation per address in first-arrival order.
type buffer struct {
	mu      sync.Mutex
	pending map[string]int
	obs     []roster.Observation
}

func (b *buffer) put(o roster.Observation) {
	if o.Address == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		b.pending = make(map[string]int)
	}
	if i, ok := b.pending[o.Address]; ok {
		b.obs[i] = o
		return
	}
	b.pending[o.Address] = len(b.obs)
	b.obs = append(b.obs, o)
}

func (b *buffer) drain() []roster.Observation {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.obs
	b.obs = nil
	clear(b.pending)
	return out
}
