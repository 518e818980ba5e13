package scan

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/storskegg/ble-roster/internal/roster"
)

func TestMessage_Observation(t *testing.T) {
	tests := []struct {
		name   string
		msg    Message
		wantOK bool
		check  func(t *testing.T, o roster.Observation)
	}{
		{
			name:   "no address",
			msg:    Message{RSSI: -40},
			wantOK: false,
		},
		{
			name:   "basic",
			msg:    Message{MacAddress: "AA:BB", RSSI: -61, DeviceName: "tag"},
			wantOK: true,
			check: func(t *testing.T, o roster.Observation) {
				if o.Address != "AA:BB" || o.RSSI != -61 || o.Name != "tag" {
					t.Errorf("Observation() = %+v", o)
				}
				if o.Metadata.Manufacturer != nil {
					t.Errorf("Manufacturer = %+v, want nil", o.Metadata.Manufacturer)
				}
			},
		},
		{
			name:   "manufacturer",
			msg:    Message{MacAddress: "AA", MfrCode: ptr(0x004c), MfrData: "0215"},
			wantOK: true,
			check: func(t *testing.T, o roster.Observation) {
				m := o.Metadata.Manufacturer
				if m == nil || m.ID != 0x004c || string(m.Payload) != "\x02\x15" {
					t.Errorf("Manufacturer = %+v, want ID 004c payload 0215", m)
				}
			},
		},
		{
			name:   "bad hex degrades",
			msg:    Message{MacAddress: "AA", MfrCode: ptr(6), MfrData: "zz"},
			wantOK: true,
			check: func(t *testing.T, o roster.Observation) {
				if got := roster.FormatManufacturer(o.Metadata); got != "ID: 0006, Data: " {
					t.Errorf("FormatManufacturer() = %q", got)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, ok := tt.msg.Observation()
			if ok != tt.wantOK {
				t.Fatalf("Observation() ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.check != nil {
				tt.check(t, o)
			}
		})
	}
}

func TestSerial_ProcessLine(t *testing.T) {
	s := NewSerial(SerialConfig{Stdin: strings.NewReader("")})

	s.processLine([]byte(`{"mac_address":"AA","rssi":-50,"device_name":"one","appearance":64}`))
	s.processLine([]byte(`not json`))
	s.processLine([]byte(`{"notification":"hello"}`))
	s.processLine([]byte(`{"mac_address":"BB","rssi":-70,"service_uuids":["0000180d-0000"]}`))
	s.processLine([]byte(`{"mac_address":"AA","rssi":-45,"device_name":"one"}`))

	got := s.Drain()
	if len(got) != 2 {
		t.Fatalf("Drain() returned %d observations, want 2", len(got))
	}
	if got[0].Address != "AA" || got[0].RSSI != -45 {
		t.Errorf("first = %+v, want latest AA at -45", got[0])
	}
	if got[1].Address != "BB" || len(got[1].Metadata.Services) != 1 {
		t.Errorf("second = %+v, want BB with one service", got[1])
	}
	if again := s.Drain(); len(again) != 0 {
		t.Errorf("second Drain() = %v, want empty", again)
	}
}

func TestSerial_Stdin(t *testing.T) {
	feed := strings.Join([]string{
		`{"mac_address":"AA","rssi":-50}`,
		`{"mac_address":"BB","rssi":-60,"mfr_code":76,"mfr_data":"0102"}`,
	}, "\n") + "\n"
	s := NewSerial(SerialConfig{Stdin: strings.NewReader(feed)})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Close()

	var got []roster.Observation
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < 2 && time.Now().Before(deadline) {
		got = append(got, s.Drain()...)
		time.Sleep(5 * time.Millisecond)
	}
	if len(got) != 2 {
		t.Fatalf("drained %d observations, want 2", len(got))
	}
	if got[1].Metadata.Manufacturer == nil || got[1].Metadata.Manufacturer.ID != 76 {
		t.Errorf("BB manufacturer = %+v, want ID 76", got[1].Metadata.Manufacturer)
	}
}

func TestSerial_StartWithoutInput(t *testing.T) {
	s := NewSerial(SerialConfig{})
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() error = nil, want error without port or stdin")
	}
}

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

func TestSerial_Reconnects(t *testing.T) {
	var opens atomic.Int32
	s := NewSerial(SerialConfig{Port: "/dev/fake", Baud: 115200, RetryDelay: time.Millisecond})
	s.open = func(port string, baud int) (io.ReadCloser, error) {
		n := opens.Add(1)
		if n == 1 {
			return nil, errors.New("no such device")
		}
		return nopCloser{strings.NewReader(`{"mac_address":"CC","rssi":-30}` + "\n")}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var got []roster.Observation
	deadline := time.Now().Add(2 * time.Second)
	for len(got) == 0 && time.Now().Before(deadline) {
		got = s.Drain()
		time.Sleep(2 * time.Millisecond)
	}
	if len(got) == 0 || got[0].Address != "CC" {
		t.Fatalf("Drain() = %v, want CC after reconnect", got)
	}
	if opens.Load() < 2 {
		t.Errorf("open called %d times, want at least 2", opens.Load())
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Status{Name: "bluetooth", Connected: true}, "bluetooth: connected"},
		{Status{Name: "/dev/ttyUSB0", Attempts: 3}, "/dev/ttyUSB0: reconnecting (attempt 3)"},
		{Status{Name: "stdin"}, "stdin: disconnected"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestConnectionState(t *testing.T) {
	cs := NewConnectionState("x")
	cs.SetError(errors.New("boom"))
	cs.SetError(errors.New("boom again"))
	if st := cs.Status(); st.Attempts != 2 || st.LastError == nil {
		t.Errorf("Status() = %+v, want 2 attempts with error", st)
	}
	cs.SetConnected(true)
	if st := cs.Status(); !st.Connected || st.Attempts != 0 || st.LastError != nil {
		t.Errorf("Status() after connect = %+v", st)
	}
}

func TestCues_DisabledIsSilent(t *testing.T) {
	var calls atomic.Int32
	c := NewCues(false)
	c.beep = func(float64, int) error { calls.Add(1); return nil }
	c.NewDevice()
	c.Connected()

	var nilCues *Cues
	nilCues.Disconnected()

	time.Sleep(10 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("beep called %d times while disabled", n)
	}
}
