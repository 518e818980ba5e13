package gps

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"
)

const (
	ggaFix   = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	ggaNoFix = "$GPGGA,123519,4807.038,N,01131.000,E,0,00,99.9,0.0,M,0.0,M,,*45"
	rmcValid = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
	rmcVoid  = "$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*7D"
	gsvFirst = "$GPGSV,2,1,08,01,40,083,46,02,17,308,41,12,07,344,39,14,22,228,45*75"
)

var fixTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestReceiver() *Receiver {
	r := NewReceiver("/dev/gps", 9600)
	r.now = func() time.Time { return fixTime }
	return r
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-4 }

func TestParseSentence(t *testing.T) {
	tests := []struct {
		name       string
		lines      []string
		wantStatus Status
		wantFix    bool
		wantElev   float64
		wantInView int
	}{
		{"gga fix", []string{ggaFix}, Fix, true, 545.4, 0},
		{"gga no fix", []string{ggaNoFix}, NoFix, false, 0, 0},
		{"rmc valid", []string{rmcValid}, Fix, true, 0, 0},
		{"rmc void", []string{rmcVoid}, NoFix, false, 0, 0},
		{"gga then rmc keeps elevation", []string{ggaFix, rmcValid}, Fix, true, 545.4, 0},
		{"gsv then gga", []string{gsvFirst, ggaFix}, Fix, true, 545.4, 8},
		{"garbage ignored", []string{"$GPXYZ,bad*00", "hello"}, NoGPS, false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReceiver()
			inView := 0
			for _, l := range tt.lines {
				r.parseSentence(l, &inView)
			}

			info := r.State().Info()
			if info.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", info.Status, tt.wantStatus)
			}
			if info.SatellitesInView != tt.wantInView {
				t.Errorf("SatellitesInView = %d, want %d", info.SatellitesInView, tt.wantInView)
			}

			loc := r.State().Current()
			if (loc != nil) != tt.wantFix {
				t.Fatalf("Current() = %v, want fix %v", loc, tt.wantFix)
			}
			if loc == nil {
				return
			}
			if !near(loc.Latitude, 48.1173) || !near(loc.Longitude, 11.516667) {
				t.Errorf("Current() = %.5f,%.5f, want 48.1173,11.51667", loc.Latitude, loc.Longitude)
			}
			if !near(loc.Elevation, tt.wantElev) {
				t.Errorf("Elevation = %v, want %v", loc.Elevation, tt.wantElev)
			}
			if !loc.Time.Equal(fixTime) {
				t.Errorf("Time = %v, want %v", loc.Time, fixTime)
			}
		})
	}
}

func TestLostFixHidesCurrent(t *testing.T) {
	r := newTestReceiver()
	inView := 0
	r.parseSentence(ggaFix, &inView)
	r.parseSentence(ggaNoFix, &inView)
	if loc := r.State().Current(); loc != nil {
		t.Errorf("Current() = %+v after fix lost, want nil", loc)
	}
}

func TestParseFixQuality(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"0", 0}, {"1", 1}, {"2", 2}, {"6", 6}, {"7", 0}, {"", 0}, {"12", 0},
	}
	for _, tt := range tests {
		if got := parseFixQuality(tt.in); got != tt.want {
			t.Errorf("parseFixQuality(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

type lineCloser struct{ io.Reader }

func (lineCloser) Close() error { return nil }

// openPipe returns a port that yields lines and then stays silent until
// closed.
func openPipe(lines ...string) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		for _, l := range lines {
			if _, err := io.WriteString(pw, l+"\r\n"); err != nil {
				return
			}
		}
	}()
	return pr, nil
}

func TestReceiver_ReadsPort(t *testing.T) {
	r := newTestReceiver()
	r.open = func(string, int) (io.ReadCloser, error) {
		return openPipe(gsvFirst, ggaFix)
	}
	r.retryDelay = time.Millisecond

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Close()

	deadline := time.Now().Add(2 * time.Second)
	for r.State().Current() == nil && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if r.State().Current() == nil {
		t.Fatal("no fix after reading port")
	}
}

func TestReceiver_AutoBaud(t *testing.T) {
	r := newTestReceiver()
	r.baud = 0
	var tried []int
	r.open = func(_ string, baud int) (io.ReadCloser, error) {
		tried = append(tried, baud)
		if baud != 38400 {
			return lineCloser{strings.NewReader("\x00\xff garbage\n")}, nil
		}
		return lineCloser{strings.NewReader(ggaFix + "\n" + rmcValid + "\n")}, nil
	}

	if got := r.autoBaudDetect(context.Background()); got != 38400 {
		t.Errorf("autoBaudDetect() = %d, want 38400 (tried %v)", got, tried)
	}
}

func TestReceiver_CloseDuringSilentDetection(t *testing.T) {
	r := newTestReceiver()
	r.baud = 0
	r.open = func(string, int) (io.ReadCloser, error) { return openPipe() }

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		r.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close() blocked while detecting baud rate")
	}
}

func TestDetectValidNMEA_WindowEnds(t *testing.T) {
	port, _ := openPipe(ggaFix)

	start := time.Now()
	if detectValidNMEA(context.Background(), port, 20*time.Millisecond) {
		t.Error("detectValidNMEA() = true with one sentence")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("detectValidNMEA() took %v on a silent port", elapsed)
	}
}

func TestReceiver_AutoBaudFails(t *testing.T) {
	r := newTestReceiver()
	r.baud = 0
	r.open = func(string, int) (io.ReadCloser, error) { return nil, errors.New("busy") }

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	r.wg.Wait()
	if st := r.State().Info().Status; st != Failed {
		t.Errorf("Status = %v, want failed", st)
	}
}

func TestNilStateIsSafe(t *testing.T) {
	var ls *LocationState
	if ls.Current() != nil {
		t.Error("nil Current() != nil")
	}
	if ls.Info().Status != NoGPS {
		t.Error("nil Info().Status != NoGPS")
	}
}
