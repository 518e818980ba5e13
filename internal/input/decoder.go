package input

import (
	"time"
)

// DefaultEscapeTimeout bounds how long a partial escape sequence may wait for
// its next byte.
const DefaultEscapeTimeout = 25 * time.Millisecond

const esc = 0x1b

type state int

const (
	stateIdle state = iota
	stateSawEscape
	stateSawBracket // ESC [
	stateSawSS3     // ESC O
	stateSawDigit   // ESC [ <digits>
)

// Decoder is a state machine over a byte channel. It is not safe for
// concurrent use; the refresh loop owns it.
type Decoder struct {
	in      <-chan byte
	timeout time.Duration

	state  state
	param  int
	keys   []Key
	closed bool
}

// NewDecoder reads bytes from in. A timeout <= 0 uses DefaultEscapeTimeout.
func NewDecoder(in <-chan byte, timeout time.Duration) *Decoder {
	if timeout <= 0 {
		timeout = DefaultEscapeTimeout
	}
	return &Decoder{in: in, timeout: timeout}
}

// Poll returns every complete key available right now. It never blocks on an
// idle channel. When a sequence is half-received it waits at most the escape
// timeout for the rest, then abandons the partial sequence.
func (d *Decoder) Poll() []Key {
	for !d.closed {
		select {
		case b, ok := <-d.in:
			if !ok {
				d.closed = true
				d.reset()
				continue
			}
			d.feed(b)
			continue
		default:
		}

		if d.state == stateIdle {
			break
		}

		timer := time.NewTimer(d.timeout)
		select {
		case b, ok := <-d.in:
			timer.Stop()
			if !ok {
				d.closed = true
				d.reset()
				continue
			}
			d.feed(b)
			continue
		case <-timer.C:
			d.reset()
		}
		break
	}

	keys := d.keys
	d.keys = nil
	return keys
}

// Closed reports whether the byte channel has been closed.
func (d *Decoder) Closed() bool { return d.closed }

func (d *Decoder) emit(k Key) {
	d.keys = append(d.keys, k)
	d.reset()
}

func (d *Decoder) reset() {
	d.state = stateIdle
	d.param = 0
}

// abandon drops a partial CSI or SS3 sequence. A byte that is not a
// sequence terminator is examined again as fresh input.
func (d *Decoder) abandon(b byte) {
	d.reset()
	if !isFinal(b) {
		d.feed(b)
	}
}

func (d *Decoder) feed(b byte) {
	switch d.state {
	case stateIdle:
		if b == esc {
			d.state = stateSawEscape
			return
		}
		if k := singleByte(b); k != KeyNone {
			d.keys = append(d.keys, k)
		}

	case stateSawEscape:
		switch b {
		case '[':
			d.state = stateSawBracket
		case 'O':
			d.state = stateSawSS3
		case esc:
			// a fresh escape replaces the pending one
		default:
			// no sequence has started, so b is a key of its own
			d.reset()
			d.feed(b)
		}

	case stateSawBracket:
		switch {
		case b >= '0' && b <= '9':
			d.state = stateSawDigit
			d.param = int(b - '0')
		case b == 'A':
			d.emit(KeyUp)
		case b == 'B':
			d.emit(KeyDown)
		case b == 'H':
			d.emit(KeyHome)
		case b == 'F':
			d.emit(KeyEnd)
		default:
			d.abandon(b)
		}

	case stateSawSS3:
		switch b {
		case 'A':
			d.emit(KeyUp)
		case 'B':
			d.emit(KeyDown)
		case 'H':
			d.emit(KeyHome)
		case 'F':
			d.emit(KeyEnd)
		default:
			d.abandon(b)
		}

	case stateSawDigit:
		switch {
		case b >= '0' && b <= '9':
			if d.param >= 0 && d.param < 100 {
				d.param = d.param*10 + int(b-'0')
			}
		case b == ';':
			// modifier parameters are not recognised; wait for the final byte
			d.param = -1
		case b == '~':
			k := tildeKey(d.param)
			d.reset()
			if k != KeyNone {
				d.keys = append(d.keys, k)
			}
		default:
			d.abandon(b)
		}
	}
}

func tildeKey(param int) Key {
	switch param {
	case 1, 7:
		return KeyHome
	case 4, 8:
		return KeyEnd
	case 5:
		return KeyPageUp
	case 6:
		return KeyPageDown
	}
	return KeyNone
}

// isFinal reports whether b terminates a CSI sequence.
func isFinal(b byte) bool {
	return b >= 0x40 && b <= 0x7e
}
