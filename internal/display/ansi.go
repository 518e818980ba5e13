package display

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	csi             = "\x1b["
	seqClear        = csi + "2J" + csi + "H"
	seqHideCursor   = csi + "?25l"
	seqShowCursor   = csi + "?25h"
	seqAltScreenOn  = csi + "?1049h"
	seqAltScreenOff = csi + "?1049l"
	seqResetScroll  = csi + "r"
	seqResetAttrs   = csi + "0m"
)

// ANSI draws with escape sequences on a raw-mode terminal.
type ANSI struct {
	mu     sync.Mutex
	out    io.Writer
	fd     int
	state  *term.State
	styles map[Style]lipgloss.Style
	buf    bytes.Buffer
}

// NewANSI puts the terminal behind in into raw mode and switches out to the
// alternate screen.
func NewANSI(in *os.File, out *os.File) (*ANSI, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enable raw mode: %w", err)
	}
	a := newANSI(out, int(out.Fd()))
	a.state = state
	a.fd = fd
	if _, err := io.WriteString(out, seqAltScreenOn); err != nil {
		_ = term.Restore(fd, state)
		return nil, err
	}
	return a, nil
}

func newANSI(out io.Writer, fd int) *ANSI {
	r := lipgloss.NewRenderer(out)
	return &ANSI{
		out: out,
		fd:  fd,
		styles: map[Style]lipgloss.Style{
			Plain:    r.NewStyle(),
			Selected: r.NewStyle().Reverse(true),
			Dim:      r.NewStyle().Faint(true),
			Header:   r.NewStyle().Bold(true),
			Status:   r.NewStyle().Reverse(true).Faint(true),
		},
	}
}

func (a *ANSI) write(s string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := io.WriteString(a.out, s)
	return err
}

func (a *ANSI) Size() (int, int, error) {
	return term.GetSize(a.fd)
}

func (a *ANSI) Clear() error      { return a.write(seqClear) }
func (a *ANSI) HideCursor() error { return a.write(seqHideCursor) }
func (a *ANSI) ShowCursor() error { return a.write(seqShowCursor) }

func (a *ANSI) SetScrollRegion(top, bottom int) error {
	return a.write(fmt.Sprintf(csi+"%d;%dr", top, bottom))
}

func (a *ANSI) ResetScrollRegion() error { return a.write(seqResetScroll) }

// Draw writes every line at its absolute row in a single write.
func (a *ANSI) Draw(f Frame) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf.Reset()
	for i, l := range f.Lines {
		fmt.Fprintf(&a.buf, csi+"%d;1H", i+1)
		a.buf.WriteString(a.styles[l.Style].Render(l.Text))
	}
	a.buf.WriteString(seqResetAttrs)
	_, err := a.out.Write(a.buf.Bytes())
	return err
}

// Close leaves the alternate screen and restores the terminal mode.
func (a *ANSI) Close() error {
	err := a.write(seqResetScroll + seqResetAttrs + seqShowCursor + seqAltScreenOff)
	if a.state != nil {
		if rerr := term.Restore(a.fd, a.state); rerr != nil && err == nil {
			err = rerr
		}
		a.state = nil
	}
	return err
}
