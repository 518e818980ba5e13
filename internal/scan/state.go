package scan

import (
	"sync"
	"time"
)

// ConnectionState tracks source connection status
type ConnectionState struct {
	mu            sync.RWMutex
	name          string
	connected     bool
	lastErr       error
	lastErrorTime time.Time
	totalAttempts int
}

func NewConnectionState(name string) *ConnectionState {
	return &ConnectionState{name: name}
}

func (cs *ConnectionState) SetConnected(connected bool) {
	cs.mu.Lock()
	cs.connected = connected
	if connected {
		cs.totalAttempts = 0
		cs.lastErr = nil
	}
	cs.mu.Unlock()
}

func (cs *ConnectionState) SetError(err error) {
	cs.mu.Lock()
	cs.lastErr = err
	cs.lastErrorTime = time.Now()
	cs.totalAttempts++
	cs.mu.Unlock()
}

func (cs *ConnectionState) Connected() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.connected
}

func (cs *ConnectionState) Status() Status {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return Status{
		Name:        cs.name,
		Connected:   cs.connected,
		Attempts:    cs.totalAttempts,
		LastError:   cs.lastErr,
		LastErrorAt: cs.lastErrorTime,
	}
}
