package scan

import (
	"time"

	"github.com/gen2brain/beeep"
)

// Cues plays short tones for connection changes and new devices. A nil or
// disabled Cues is silent. All tones run in goroutines to avoid blocking.
type Cues struct {
	enabled bool
	beep    func(freq float64, duration int) error
}

func NewCues(enabled bool) *Cues {
	return &Cues{enabled: enabled, beep: beeep.Beep}
}

func (c *Cues) play(tones ...[2]float64) {
	if c == nil || !c.enabled {
		return
	}
	go func() {
		for i, t := range tones {
			if i > 0 {
				time.Sleep(50 * time.Millisecond)
			}
			_ = c.beep(t[0], int(t[1]))
		}
	}()
}

// Disconnected is a low, long tone.
func (c *Cues) Disconnected() { c.play([2]float64{400, 300}) }

// ReconnectAttempt is a short mid-frequency blip.
func (c *Cues) ReconnectAttempt() { c.play([2]float64{600, 100}) }

// Connected is an ascending two-tone melody.
func (c *Cues) Connected() { c.play([2]float64{600, 150}, [2]float64{800, 150}) }

// NewDevice is a short high blip for a never-seen address.
func (c *Cues) NewDevice() { c.play([2]float64{1000, 60}) }

// Notify is the tone for a sniffer notification line.
func (c *Cues) Notify() { c.play([2]float64{880, 120}) }

// Exported is a descending two-tone pair after a snapshot is written.
func (c *Cues) Exported() { c.play([2]float64{1000, 80}, [2]float64{700, 80}) }
