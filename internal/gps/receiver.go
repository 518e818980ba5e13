package gps

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/storskegg/ble-roster/internal/logging"
	"github.com/storskegg/ble-roster/internal/roster"
)

// GPS baud rates to try, in order of likelihood
var baudRates = []int{9600, 115200, 38400, 4800}

// Receiver reads NMEA sentences from a serial GPS.
type Receiver struct {
	port  string
	baud  int
	state *LocationState

	open       func(port string, baud int) (io.ReadCloser, error)
	retryDelay time.Duration
	now        func() time.Time

	// ggaSeen is set once the receiver emits GGA; RMC is then ignored.
	ggaSeen bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReceiver returns a receiver for port. A baud of 0 auto-detects.
func NewReceiver(port string, baud int) *Receiver {
	return &Receiver{
		port:       port,
		baud:       baud,
		state:      NewLocationState(),
		open:       openPort,
		retryDelay: time.Second,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// State is the location state updated by the receiver.
func (r *Receiver) State() *LocationState { return r.state }

// openPort opens a GPS serial port with the given baud rate
func openPort(portPath string, baudRate int) (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(portPath, mode)
}

// Start detects the baud rate if needed and reads on a goroutine.
func (r *Receiver) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)
	r.state.SetStatus(Detecting)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx)
	}()
	return nil
}

// Close stops reading and waits for the reader goroutine.
func (r *Receiver) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	return nil
}

func (r *Receiver) run(ctx context.Context) {
	baud := r.baud
	if baud == 0 {
		baud = r.autoBaudDetect(ctx)
		if baud == 0 {
			r.state.SetStatus(Failed)
			logging.Warn("GPS baud detection failed", zap.String("port", r.port))
			return
		}
		logging.Info("GPS baud detected", zap.String("port", r.port), zap.Int("baud", baud))
	}

	reconnectDelay := r.retryDelay
	maxReconnectDelay := 5 * r.retryDelay

	for {
		if ctx.Err() != nil {
			return
		}

		port, err := r.open(r.port, baud)
		if err != nil {
			r.state.ReconnectAttempt()
			r.state.SetConnected(false)
			r.state.SetStatus(NoFix)

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
				reconnectDelay = min(reconnectDelay+r.retryDelay, maxReconnectDelay)
			}
			continue
		}

		r.state.SetConnected(true)
		r.state.SetStatus(NoFix)
		reconnectDelay = r.retryDelay

		stop := context.AfterFunc(ctx, func() { port.Close() })
		err = r.readLoop(ctx, port)
		if stop() {
			port.Close()
		}

		if ctx.Err() != nil {
			return
		}
		r.state.SetConnected(false)
		r.state.SetStatus(NoFix)
		logging.Warn("GPS connection lost", zap.String("port", r.port), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// autoBaudDetect returns the first baud rate yielding valid NMEA, or 0.
func (r *Receiver) autoBaudDetect(ctx context.Context) int {
	const detectionWindow = 2 * time.Second
	const maxAttempts = 3

	for attempt := 0; attempt < maxAttempts; attempt++ {
		for _, baudRate := range baudRates {
			if ctx.Err() != nil {
				return 0
			}
			port, err := r.open(r.port, baudRate)
			if err != nil {
				continue
			}
			if detectValidNMEA(ctx, port, detectionWindow) {
				return baudRate
			}
		}
	}
	return 0
}

// detectValidNMEA reports whether two valid sentences arrive within duration.
// The port is closed on return, when the window ends, or when ctx is done.
func detectValidNMEA(ctx context.Context, port io.ReadCloser, duration time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	if sp, ok := port.(serial.Port); ok {
		if err := sp.SetReadTimeout(duration); err != nil {
			logging.Debug("GPS read timeout not set", zap.Error(err))
		}
	}

	var once sync.Once
	closePort := func() { once.Do(func() { port.Close() }) }
	stop := context.AfterFunc(ctx, closePort)
	defer func() {
		stop()
		closePort()
	}()

	scanner := bufio.NewScanner(port)
	validCount := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return false
		}
		if _, err := nmea.Parse(scanner.Text()); err == nil {
			validCount++
			if validCount >= 2 {
				return true
			}
		}
	}
	return false
}

func (r *Receiver) readLoop(ctx context.Context, port io.Reader) error {
	scanner := bufio.NewScanner(port)
	scanner.Buffer(make([]byte, 4096), 16384)

	// satellites in view from the first GSV message of each sequence
	inView := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		r.parseSentence(scanner.Text(), &inView)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

// parseSentence updates the state from one NMEA line. Malformed sentences
// are ignored.
func (r *Receiver) parseSentence(line string, inView *int) {
	s, err := nmea.Parse(line)
	if err != nil {
		return
	}

	switch m := s.(type) {
	case nmea.GGA:
		r.ggaSeen = true
		quality := parseFixQuality(m.FixQuality)
		if quality == 0 {
			r.state.SetStatus(NoFix)
			return
		}
		r.state.SetCurrent(roster.Location{
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
			Elevation: m.Altitude,
			Time:      r.now(),
		}, quality, int(m.NumSatellites), *inView)

	case nmea.RMC:
		// RMC carries no elevation or satellite count
		if r.ggaSeen {
			return
		}
		if m.Validity != nmea.ValidRMC {
			r.state.SetStatus(NoFix)
			return
		}
		r.state.SetCurrent(roster.Location{
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
			Time:      r.now(),
		}, 1, 0, *inView)

	case nmea.GSV:
		if m.MessageNumber == 1 {
			*inView = int(m.NumberSVsInView)
		}
	}
}

// parseFixQuality converts an NMEA fix quality to 0 (invalid) through 6
// (estimated).
func parseFixQuality(quality string) int {
	if len(quality) == 1 && quality[0] >= '0' && quality[0] <= '6' {
		return int(quality[0] - '0')
	}
	return 0
}
