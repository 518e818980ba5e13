package scan

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/storskegg/ble-roster/internal/logging"
	"github.com/storskegg/ble-roster/internal/roster"
)

// Message is one line of the sniffer feed.
type Message struct {
	Notification *string  `json:"notification,omitempty"`
	MacAddress   string   `json:"mac_address,omitempty"`
	RSSI         int      `json:"rssi,omitempty"`
	MfrCode      *int     `json:"mfr_code,omitempty"`
	MfrData      string   `json:"mfr_data,omitempty"`
	DeviceName   string   `json:"device_name,omitempty"`
	ServiceUUIDs []string `json:"service_uuids,omitempty"`
	Appearance   *uint16  `json:"appearance,omitempty"`
}

// Observation converts a device message. ok is false for notifications and
// lines without an address.
func (m *Message) Observation() (roster.Observation, bool) {
	if m.MacAddress == "" {
		return roster.Observation{}, false
	}
	o := roster.Observation{
		Address: m.MacAddress,
		Name:    m.DeviceName,
		RSSI:    m.RSSI,
		Metadata: roster.Metadata{
			Appearance: m.Appearance,
			Services:   m.ServiceUUIDs,
		},
	}
	if m.MfrCode != nil && *m.MfrCode >= 0 && *m.MfrCode <= 0xffff {
		// undecodable hex degrades to an empty payload
		payload, _ := hex.DecodeString(m.MfrData)
		o.Metadata.Manufacturer = &roster.Manufacturer{ID: uint16(*m.MfrCode), Payload: payload}
	}
	return o, true
}

// SerialConfig configures a Serial source.
type SerialConfig struct {
	// Port is the serial device path. Empty reads Stdin once, without
	// reconnecting.
	Port  string
	Baud  int
	Stdin io.Reader

	// RetryDelay is the first reconnect delay; each failure adds another
	// RetryDelay up to five times its value.
	RetryDelay time.Duration
	Cues       *Cues
}

// Serial reads JSON lines from a sniffer attached over serial or piped in.
type Serial struct {
	cfg  SerialConfig
	open func(port string, baud int) (io.ReadCloser, error)

	buf    buffer
	conn   *ConnectionState
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	reader io.ReadCloser
}

func NewSerial(cfg SerialConfig) *Serial {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	name := cfg.Port
	if name == "" {
		name = "stdin"
	}
	return &Serial{
		cfg:  cfg,
		open: openSerialPort,
		conn: NewConnectionState(name),
	}
}

// openSerialPort attempts to open a serial port with the given configuration
func openSerialPort(portPath string, baudRate int) (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(portPath, mode)
}

// Start launches the read loop.
func (s *Serial) Start(ctx context.Context) error {
	if s.cfg.Port == "" && s.cfg.Stdin == nil {
		return errors.New("serial source: no port and no stdin")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	return nil
}

func (s *Serial) Drain() []roster.Observation { return s.buf.drain() }

func (s *Serial) Status() Status { return s.conn.Status() }

// Close stops the read loop and closes the port.
func (s *Serial) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	r := s.reader
	s.mu.Unlock()
	var err error
	if r != nil && s.cfg.Port != "" {
		err = r.Close()
	}
	if s.cfg.Port != "" {
		s.wg.Wait()
	}
	return err
}

func (s *Serial) setReader(r io.ReadCloser) {
	s.mu.Lock()
	s.reader = r
	s.mu.Unlock()
}

// run reads from the port, reconnecting with a linear backoff until ctx is
// done. Stdin is read once with no reconnection.
func (s *Serial) run(ctx context.Context) {
	if s.cfg.Port == "" {
		s.conn.SetConnected(true)
		err := s.readLoop(ctx, s.cfg.Stdin)
		s.conn.SetConnected(false)
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if err != nil {
			s.conn.SetError(err)
		}
		logging.LogSourceState("stdin", false, err)
		return
	}

	reconnectDelay := s.cfg.RetryDelay
	maxReconnectDelay := 5 * s.cfg.RetryDelay

	for {
		if ctx.Err() != nil {
			return
		}

		reader, err := s.open(s.cfg.Port, s.cfg.Baud)
		if err != nil {
			wasConnected := s.conn.Connected()
			s.conn.SetConnected(false)
			s.conn.SetError(fmt.Errorf("open %s: %w", s.cfg.Port, err))
			logging.Warn("Serial open failed",
				zap.String("port", s.cfg.Port),
				zap.Error(err),
				zap.Duration("retry_in", reconnectDelay),
			)

			if wasConnected {
				s.cfg.Cues.Disconnected()
			} else {
				s.cfg.Cues.ReconnectAttempt()
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
				reconnectDelay = min(reconnectDelay+s.cfg.RetryDelay, maxReconnectDelay)
			}
			continue
		}

		s.setReader(reader)
		if ctx.Err() != nil {
			// Close ran before the reader was published
			reader.Close()
			return
		}
		s.conn.SetConnected(true)
		reconnectDelay = s.cfg.RetryDelay
		logging.LogSourceState(s.cfg.Port, true, nil)
		s.cfg.Cues.Connected()

		err = s.readLoop(ctx, reader)
		reader.Close()
		s.setReader(nil)

		if ctx.Err() != nil {
			return
		}

		s.conn.SetConnected(false)
		s.conn.SetError(fmt.Errorf("read %s: %w", s.cfg.Port, err))
		logging.LogSourceState(s.cfg.Port, false, err)
		s.cfg.Cues.Disconnected()

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// readLoop scans lines until error, EOF or cancellation.
func (s *Serial) readLoop(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		s.processLine(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

// processLine decodes a single line of JSON. Malformed lines are ignored.
func (s *Serial) processLine(line []byte) {
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		logging.Debug("Skipping malformed line", zap.Int("length", len(line)), zap.Error(err))
		return
	}

	if msg.Notification != nil {
		s.cfg.Cues.Notify()
		return
	}

	if o, ok := msg.Observation(); ok {
		s.buf.put(o)
	}
}
