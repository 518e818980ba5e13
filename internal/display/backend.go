package display

// Backend is a terminal the refresh loop draws on.
type Backend interface {
	Size() (width, height int, err error)
	Clear() error
	HideCursor() error
	ShowCursor() error
	// SetScrollRegion limits terminal scrolling to rows top..bottom (1-based,
	// inclusive).
	SetScrollRegion(top, bottom int) error
	ResetScrollRegion() error
	Draw(f Frame) error
	// Close restores the terminal to the state it was found in.
	Close() error
}
