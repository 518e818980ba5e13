package display

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/storskegg/ble-roster/internal/input"
)

// Tcell draws through a tcell screen. Key events are decoded by tcell and
// translated to input.Key.
type Tcell struct {
	screen tcell.Screen
	styles map[Style]tcell.Style
	keys   *input.Queue
}

func NewTcell() (*Tcell, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return newTcell(s), nil
}

func newTcell(s tcell.Screen) *Tcell {
	normal := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	return &Tcell{
		screen: s,
		keys:   input.NewQueue(64),
		styles: map[Style]tcell.Style{
			Plain:    normal,
			Selected: normal.Reverse(true),
			Dim:      normal.Foreground(tcell.ColorGray),
			Header:   tcell.StyleDefault.Bold(true).Background(tcell.ColorNavy).Foreground(tcell.ColorWhite),
			Status:   tcell.StyleDefault.Background(tcell.ColorDarkSlateGray).Foreground(tcell.ColorWhite),
		},
	}
}

// Keys returns the queue fed by Listen.
func (t *Tcell) Keys() *input.Queue { return t.keys }

// Listen forwards key events until ctx is done or the screen is finalized.
func (t *Tcell) Listen(ctx context.Context) {
	go func() {
		for ctx.Err() == nil {
			switch ev := t.screen.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventKey:
				if k := TcellKey(ev); k != input.KeyNone {
					t.keys.Push(k)
				}
			case *tcell.EventResize:
				t.screen.Sync()
			}
		}
	}()
}

// TcellKey translates a tcell key event.
func TcellKey(ev *tcell.EventKey) input.Key {
	return tcellKey(ev.Key(), ev.Rune())
}

func tcellKey(k tcell.Key, r rune) input.Key {
	switch k {
	case tcell.KeyUp:
		return input.KeyUp
	case tcell.KeyDown:
		return input.KeyDown
	case tcell.KeyPgUp:
		return input.KeyPageUp
	case tcell.KeyPgDn:
		return input.KeyPageDown
	case tcell.KeyHome:
		return input.KeyHome
	case tcell.KeyEnd:
		return input.KeyEnd
	case tcell.KeyEnter:
		return input.KeyEnter
	case tcell.KeyCtrlC:
		return input.KeyCtrlC
	case tcell.KeyRune:
		return input.KeyForRune(r)
	}
	return input.KeyNone
}

func (t *Tcell) Size() (int, int, error) {
	w, h := t.screen.Size()
	return w, h, nil
}

func (t *Tcell) Clear() error {
	t.screen.Clear()
	return nil
}

func (t *Tcell) HideCursor() error {
	t.screen.HideCursor()
	return nil
}

// ShowCursor is a no-op; Fini restores the cursor.
func (t *Tcell) ShowCursor() error { return nil }

// SetScrollRegion is a no-op; tcell repaints cells rather than scrolling.
func (t *Tcell) SetScrollRegion(int, int) error { return nil }

func (t *Tcell) ResetScrollRegion() error { return nil }

func (t *Tcell) Draw(f Frame) error {
	for y, l := range f.Lines {
		drawText(t.screen, 0, y, f.Width, t.styles[l.Style], l.Text)
	}
	t.screen.Show()
	return nil
}

func (t *Tcell) Close() error {
	t.screen.Fini()
	return nil
}

// drawText draws text at a specific position, padding with blanks to width
func drawText(s tcell.Screen, x, y, width int, style tcell.Style, text string) {
	col := 0
	for _, r := range text {
		if col >= width {
			break
		}
		s.SetContent(x+col, y, r, nil, style)
		col++
	}
	for col < width {
		s.SetContent(x+col, y, ' ', nil, style)
		col++
	}
}
