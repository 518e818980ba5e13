// Package input turns raw terminal bytes into navigation and mode commands.
//
// A reader goroutine copies stdin into a byte channel (see Read). The Decoder
// drains that channel once per refresh cycle and yields complete Keys, and the
// Interpreter applies each Key to a viewport.Controller.
package input

// Key is a decoded key press.
type Key int

const (
	KeyNone Key = iota
	KeyUp
	KeyDown
	KeyPageUp
	KeyPageDown
	KeyHome
	KeyEnd
	KeyEnter
	KeyCtrlC
	KeySort   // s
	KeyList   // q
	KeyClear  // c
	KeyPause  // p
	KeyExport // e
)

var keyNames = map[Key]string{
	KeyNone:     "none",
	KeyUp:       "up",
	KeyDown:     "down",
	KeyPageUp:   "pgup",
	KeyPageDown: "pgdn",
	KeyHome:     "home",
	KeyEnd:      "end",
	KeyEnter:    "enter",
	KeyCtrlC:    "ctrl-c",
	KeySort:     "s",
	KeyList:     "q",
	KeyClear:    "c",
	KeyPause:    "p",
	KeyExport:   "e",
}

func (k Key) String() string {
	if s, ok := keyNames[k]; ok {
		return s
	}
	return "unknown"
}

// singleByte maps a byte received outside an escape sequence.
func singleByte(b byte) Key {
	switch b {
	case 's':
		return KeySort
	case 'q':
		return KeyList
	case 'c':
		return KeyClear
	case 'p':
		return KeyPause
	case 'e':
		return KeyExport
	case '\r', '\n':
		return KeyEnter
	case 0x03:
		return KeyCtrlC
	}
	return KeyNone
}

// KeyForRune maps a printable rune from a key event that has already been
// decoded elsewhere (the tcell backend).
func KeyForRune(r rune) Key {
	if r > 0x7f {
		return KeyNone
	}
	return singleByte(byte(r))
}
