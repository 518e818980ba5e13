// Package viewport tracks the scroll window and the selected device over an
// ordered roster that changes every refresh cycle.
//
// A Controller keeps the selection by device address rather than by index,
// so re-sorting and eviction never move the cursor to a different device
// unless the selected one disappears. One roster entry occupies one line.
package viewport

import (
	"slices"

	"github.com/storskegg/ble-roster/internal/roster"
)

// View is the screen currently shown.
type View int

const (
	List View = iota
	Detail
)

func (v View) String() string {
	if v == Detail {
		return "detail"
	}
	return "list"
}

// Direction of a selection move.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) opposite() Direction {
	if d == Up {
		return Down
	}
	return Up
}

// Edge of the roster for jumps.
type Edge int

const (
	First Edge = iota
	Last
)

// moveMemo remembers the state before a single-step move so that an
// immediate reverse move lands on the exact same window.
type moveMemo struct {
	dir      Direction
	offset   int
	selected string
}

// Controller owns scroll offset, selection, view and sort mode.
type Controller struct {
	offset   int
	selected string
	view     View
	sortMode roster.SortMode
	height   int

	// ids is the ordered roster from the last Reconcile
	ids  []string
	undo *moveMemo
}

// New returns a controller for a window of contentHeight lines.
func New(contentHeight int, mode roster.SortMode) *Controller {
	return &Controller{
		height:   max(1, contentHeight),
		sortMode: mode,
	}
}

// SetContentHeight resizes the window, keeping the selection visible.
func (c *Controller) SetContentHeight(h int) {
	h = max(1, h)
	if h == c.height {
		return
	}
	c.height = h
	c.undo = nil
	c.scrollToSelection()
	c.clamp()
}

// Reconcile adopts the ordered roster of the current cycle. A selection that
// is no longer present falls back to the first entry, or to none when the
// roster is empty. The window then follows the selection to the nearest edge
// and is clamped to the roster.
func (c *Controller) Reconcile(entries []roster.Entry) {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Address
	}
	if !slices.Equal(ids, c.ids) {
		c.undo = nil
	}
	c.ids = ids

	if c.indexOf(c.selected) < 0 {
		c.selected = ""
		if len(ids) > 0 {
			c.selected = ids[0]
		} else {
			c.view = List
		}
	}

	c.scrollToSelection()
	c.clamp()
}

// OnDevicesEvicted shifts the window up by the number of evicted devices,
// floored at zero. Evicted devices may have been below the window as well;
// the controller does not track which, so this is an approximation.
func (c *Controller) OnDevicesEvicted(removed int) {
	if removed <= 0 {
		return
	}
	c.undo = nil
	c.offset = max(0, c.offset-removed)
}

// Move selects the neighbouring entry. It is a no-op at either end.
func (c *Controller) Move(dir Direction) {
	idx := c.indexOf(c.selected)
	if idx < 0 {
		return
	}
	target := idx + 1
	if dir == Up {
		target = idx - 1
	}
	if target < 0 || target >= len(c.ids) {
		return
	}

	if u := c.undo; u != nil && u.dir == dir.opposite() && u.selected == c.ids[target] {
		c.selected = u.selected
		c.offset = u.offset
		c.undo = nil
		c.clamp()
		return
	}

	memo := &moveMemo{dir: dir, offset: c.offset, selected: c.selected}
	c.selected = c.ids[target]
	c.scrollToSelection()
	c.clamp()
	c.undo = memo
}

// Page moves the selection and the window by one window height.
func (c *Controller) Page(dir Direction) {
	idx := c.indexOf(c.selected)
	if idx < 0 {
		return
	}
	c.undo = nil

	delta := c.height
	if dir == Up {
		delta = -delta
	}
	target := min(len(c.ids)-1, max(0, idx+delta))
	c.selected = c.ids[target]
	c.offset += delta
	c.clamp()
	c.scrollToSelection()
	c.clamp()
}

// Jump selects the first or last entry and scrolls to that end.
func (c *Controller) Jump(edge Edge) {
	if len(c.ids) == 0 {
		return
	}
	c.undo = nil

	if edge == First {
		c.selected = c.ids[0]
		c.offset = 0
		return
	}
	c.selected = c.ids[len(c.ids)-1]
	c.offset = c.maxOffset()
}

// ToggleView swaps between list and detail. Without a selection there is
// nothing to detail, so it does nothing.
func (c *Controller) ToggleView() {
	if c.selected == "" {
		return
	}
	if c.view == List {
		c.view = Detail
	} else {
		c.view = List
	}
}

// ShowList returns to the list view.
func (c *Controller) ShowList() {
	c.view = List
}

// ToggleSortMode swaps the active-group ordering. The next Reconcile deals
// with the re-sorted roster.
func (c *Controller) ToggleSortMode() {
	c.sortMode = c.sortMode.Toggle()
}

// Offset is the index of the first visible line.
func (c *Controller) Offset() int { return c.offset }

// Selected returns the selected address, if any.
func (c *Controller) Selected() (string, bool) {
	return c.selected, c.selected != ""
}

// SelectedIndex is the position of the selection in the roster, or -1.
func (c *Controller) SelectedIndex() int { return c.indexOf(c.selected) }

// View returns the current view.
func (c *Controller) View() View { return c.view }

// SortMode returns the current sort mode.
func (c *Controller) SortMode() roster.SortMode { return c.sortMode }

// ContentHeight is the number of roster lines the window shows.
func (c *Controller) ContentHeight() int { return c.height }

// Total is the number of lines in the last reconciled roster.
func (c *Controller) Total() int { return len(c.ids) }

// Window returns the half-open range of visible roster indices.
func (c *Controller) Window() (start, end int) {
	return c.offset, min(len(c.ids), c.offset+c.height)
}

func (c *Controller) indexOf(addr string) int {
	if addr == "" {
		return -1
	}
	for i, id := range c.ids {
		if id == addr {
			return i
		}
	}
	return -1
}

// scrollToSelection brings the selection into the window at the nearest edge.
func (c *Controller) scrollToSelection() {
	idx := c.indexOf(c.selected)
	if idx < 0 {
		return
	}
	if idx < c.offset {
		c.offset = idx
	} else if idx >= c.offset+c.height {
		c.offset = idx - c.height + 1
	}
}

func (c *Controller) maxOffset() int {
	return max(0, len(c.ids)-c.height)
}

func (c *Controller) clamp() {
	c.offset = min(c.maxOffset(), max(0, c.offset))
}
