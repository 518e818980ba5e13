package input

import (
	"github.com/storskegg/ble-roster/internal/viewport"
)

// Command is what a key asks for.
type Command int

const (
	CmdNone Command = iota
	CmdMoveUp
	CmdMoveDown
	CmdPageUp
	CmdPageDown
	CmdFirst
	CmdLast
	CmdToggleView
	CmdShowList
	CmdToggleSort
	CmdQuit
	CmdClear
	CmdPause
	CmdExport
)

// CommandFor maps a key to its command.
func CommandFor(k Key) Command {
	switch k {
	case KeyUp:
		return CmdMoveUp
	case KeyDown:
		return CmdMoveDown
	case KeyPageUp:
		return CmdPageUp
	case KeyPageDown:
		return CmdPageDown
	case KeyHome:
		return CmdFirst
	case KeyEnd:
		return CmdLast
	case KeyEnter:
		return CmdToggleView
	case KeyList:
		return CmdShowList
	case KeySort:
		return CmdToggleSort
	case KeyCtrlC:
		return CmdQuit
	case KeyClear:
		return CmdClear
	case KeyPause:
		return CmdPause
	case KeyExport:
		return CmdExport
	}
	return CmdNone
}

// Outcome reports what applying a key did. Quit, Clear and Export are
// requests the caller carries out; the interpreter only flags them.
type Outcome struct {
	Command Command
	Changed bool
	Quit    bool
	Clear   bool
	Export  bool
}

// Interpreter applies keys to a viewport controller and tracks the pause flag.
type Interpreter struct {
	vp     *viewport.Controller
	paused bool
}

func NewInterpreter(vp *viewport.Controller) *Interpreter {
	return &Interpreter{vp: vp}
}

// Paused reports whether ingest is paused.
func (in *Interpreter) Paused() bool { return in.paused }

// Apply runs the command bound to k.
func (in *Interpreter) Apply(k Key) Outcome {
	cmd := CommandFor(k)
	out := Outcome{Command: cmd}
	before := in.snapshot()

	switch cmd {
	case CmdNone:
		return out
	case CmdMoveUp:
		in.vp.Move(viewport.Up)
	case CmdMoveDown:
		in.vp.Move(viewport.Down)
	case CmdPageUp:
		in.vp.Page(viewport.Up)
	case CmdPageDown:
		in.vp.Page(viewport.Down)
	case CmdFirst:
		in.vp.Jump(viewport.First)
	case CmdLast:
		in.vp.Jump(viewport.Last)
	case CmdToggleView:
		in.vp.ToggleView()
	case CmdShowList:
		in.vp.ShowList()
	case CmdToggleSort:
		in.vp.ToggleSortMode()
	case CmdQuit:
		out.Quit = true
	case CmdClear:
		out.Clear = true
		out.Changed = true
	case CmdPause:
		in.paused = !in.paused
		out.Changed = true
	case CmdExport:
		out.Export = true
	}

	if in.snapshot() != before {
		out.Changed = true
	}
	return out
}

type vpState struct {
	offset   int
	selected string
	view     viewport.View
	sort     int
}

func (in *Interpreter) snapshot() vpState {
	sel, _ := in.vp.Selected()
	return vpState{
		offset:   in.vp.Offset(),
		selected: sel,
		view:     in.vp.View(),
		sort:     int(in.vp.SortMode()),
	}
}
