package viewport

import (
	"fmt"
	"testing"

	"github.com/storskegg/ble-roster/internal/roster"
)

func entries(ids ...string) []roster.Entry {
	out := make([]roster.Entry, len(ids))
	for i, id := range ids {
		out[i] = roster.Entry{Address: id, Device: &roster.DeviceRecord{Address: id}}
	}
	return out
}

func numbered(n int) []roster.Entry {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("dev-%02d", i)
	}
	return entries(ids...)
}

func assertBounds(t *testing.T, c *Controller) {
	t.Helper()
	maxOff := max(0, c.Total()-c.ContentHeight())
	if c.Offset() < 0 || c.Offset() > maxOff {
		t.Errorf("Offset() = %d, want within [0, %d]", c.Offset(), maxOff)
	}
}

func TestReconcile_SelectsFirstWhenNoSelection(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(entries("a", "b", "c"))

	sel, ok := c.Selected()
	if !ok || sel != "a" {
		t.Errorf("Selected() = %q, %v, want %q, true", sel, ok, "a")
	}
}

func TestReconcile_SelectionPersistsAcrossResort(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(entries("a", "b", "c", "d"))
	c.Move(Down)
	c.Move(Down) // select c

	c.Reconcile(entries("d", "c", "b", "a"))
	if sel, _ := c.Selected(); sel != "c" {
		t.Errorf("Selected() = %q, want %q", sel, "c")
	}
	if idx := c.SelectedIndex(); idx != 1 {
		t.Errorf("SelectedIndex() = %d, want 1", idx)
	}
}

func TestReconcile_FallbackWhenSelectionGone(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(entries("a", "b", "c"))
	c.Move(Down) // b

	c.Reconcile(entries("c", "a"))
	if sel, _ := c.Selected(); sel != "c" {
		t.Errorf("Selected() = %q, want first entry %q", sel, "c")
	}

	c.Reconcile(nil)
	if sel, ok := c.Selected(); ok {
		t.Errorf("Selected() = %q, true, want absent on empty roster", sel)
	}
	if c.SelectedIndex() != -1 {
		t.Errorf("SelectedIndex() = %d, want -1", c.SelectedIndex())
	}
}

func TestReconcile_EmptyRosterLeavesDetail(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(entries("a"))
	c.ToggleView()
	if c.View() != Detail {
		t.Fatalf("View() = %v, want detail", c.View())
	}
	c.Reconcile(nil)
	if c.View() != List {
		t.Errorf("View() = %v, want list after roster emptied", c.View())
	}
}

func TestReconcile_ScrollsSelectionIntoViewAtNearestEdge(t *testing.T) {
	c := New(5, roster.ByDiscoveryTime)
	list := numbered(20)
	c.Reconcile(list)
	c.Jump(Last) // dev-19, offset 15

	// dev-19 moves to index 2, above the window
	moved := append([]roster.Entry{}, list[:2]...)
	moved = append(moved, list[19])
	moved = append(moved, list[2:19]...)
	c.Reconcile(moved)
	if c.Offset() != 2 {
		t.Errorf("Offset() = %d, want 2 (selection at top edge)", c.Offset())
	}

	// select dev-01 from the top, then move it to index 12, below [0,5)
	c.Jump(First)
	c.Move(Down)
	sel, _ := c.Selected()
	var reordered []roster.Entry
	for _, e := range list {
		if e.Address != sel {
			reordered = append(reordered, e)
		}
	}
	reordered = append(reordered[:12], append([]roster.Entry{{Address: sel}}, reordered[12:]...)...)
	c.Reconcile(reordered)
	if c.Offset() != 8 {
		t.Errorf("Offset() = %d, want 8 (selection at bottom edge)", c.Offset())
	}
	assertBounds(t, c)
}

func TestReconcile_ScrollBoundsAfterShrink(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(numbered(40))
	c.Jump(Last)
	if c.Offset() != 30 {
		t.Fatalf("Offset() = %d, want 30", c.Offset())
	}

	for _, n := range []int{35, 12, 10, 3, 0} {
		c.Reconcile(numbered(n))
		assertBounds(t, c)
	}
}

func TestJumpLast_ClampsToFifteen(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(numbered(25))
	c.Jump(Last)

	if idx := c.SelectedIndex(); idx != 24 {
		t.Errorf("SelectedIndex() = %d, want 24", idx)
	}
	if c.Offset() != 15 {
		t.Errorf("Offset() = %d, want 15", c.Offset())
	}

	c.Reconcile(numbered(25))
	if c.Offset() != 15 {
		t.Errorf("Offset() after Reconcile = %d, want 15", c.Offset())
	}
}

func TestMoveDown_ToLastClampsToFifteen(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(numbered(25))
	for i := 0; i < 30; i++ {
		c.Move(Down)
		assertBounds(t, c)
	}
	if idx := c.SelectedIndex(); idx != 24 {
		t.Errorf("SelectedIndex() = %d, want 24", idx)
	}
	if c.Offset() != 15 {
		t.Errorf("Offset() = %d, want 15", c.Offset())
	}
}

func TestJumpFirst(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(numbered(25))
	c.Jump(Last)
	c.Jump(First)
	if c.SelectedIndex() != 0 || c.Offset() != 0 {
		t.Errorf("after Jump(First) index=%d offset=%d, want 0, 0", c.SelectedIndex(), c.Offset())
	}
}

func TestJump_EmptyRosterNoop(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(nil)
	c.Jump(Last)
	if _, ok := c.Selected(); ok {
		t.Error("Jump(Last) selected something on an empty roster")
	}
}

func TestMove_NoopAtEnds(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(entries("a", "b"))

	c.Move(Up)
	if sel, _ := c.Selected(); sel != "a" {
		t.Errorf("Move(Up) at top selected %q, want %q", sel, "a")
	}
	c.Move(Down)
	c.Move(Down)
	if sel, _ := c.Selected(); sel != "b" {
		t.Errorf("Move(Down) at bottom selected %q, want %q", sel, "b")
	}
}

func TestMove_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		height int
		total  int
		start  int // number of Down moves before the round trip
	}{
		{"inside window", 10, 25, 3},
		{"at bottom edge scrolls", 10, 25, 9},
		{"deep in list", 10, 25, 17},
		{"height one", 1, 5, 2},
		{"top", 5, 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.height, roster.ByDiscoveryTime)
			list := numbered(tt.total)
			c.Reconcile(list)
			for i := 0; i < tt.start; i++ {
				c.Move(Down)
			}
			c.Reconcile(list)

			wantSel, _ := c.Selected()
			wantOff := c.Offset()

			c.Move(Down)
			c.Reconcile(list)
			c.Move(Up)

			if sel, _ := c.Selected(); sel != wantSel {
				t.Errorf("Selected() = %q, want %q", sel, wantSel)
			}
			if c.Offset() != wantOff {
				t.Errorf("Offset() = %d, want %d", c.Offset(), wantOff)
			}
		})
	}
}

func TestPage(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(numbered(25))

	c.Page(Down)
	if c.SelectedIndex() != 10 || c.Offset() != 10 {
		t.Errorf("Page(Down) index=%d offset=%d, want 10, 10", c.SelectedIndex(), c.Offset())
	}
	c.Page(Down)
	if c.SelectedIndex() != 20 || c.Offset() != 15 {
		t.Errorf("Page(Down) index=%d offset=%d, want 20, 15", c.SelectedIndex(), c.Offset())
	}
	c.Page(Down)
	if c.SelectedIndex() != 24 || c.Offset() != 15 {
		t.Errorf("Page(Down) index=%d offset=%d, want 24, 15", c.SelectedIndex(), c.Offset())
	}
	c.Page(Up)
	if c.SelectedIndex() != 14 || c.Offset() != 5 {
		t.Errorf("Page(Up) index=%d offset=%d, want 14, 5", c.SelectedIndex(), c.Offset())
	}
	c.Page(Up)
	c.Page(Up)
	if c.SelectedIndex() != 0 || c.Offset() != 0 {
		t.Errorf("Page(Up) index=%d offset=%d, want 0, 0", c.SelectedIndex(), c.Offset())
	}
}

func TestOnDevicesEvicted(t *testing.T) {
	tests := []struct {
		name    string
		offset  int
		removed int
		want    int
	}{
		{"reduces by removed", 10, 4, 6},
		{"floored at zero", 3, 4, 0},
		{"zero removed", 7, 0, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(5, roster.ByDiscoveryTime)
			c.Reconcile(numbered(40))
			for c.Offset() < tt.offset {
				c.Move(Down)
			}
			if c.Offset() != tt.offset {
				t.Fatalf("setup Offset() = %d, want %d", c.Offset(), tt.offset)
			}

			c.OnDevicesEvicted(tt.removed)
			if c.Offset() != tt.want {
				t.Errorf("Offset() = %d, want %d", c.Offset(), tt.want)
			}
		})
	}
}

func TestEvictionAboveWindowKeepsSelectionVisible(t *testing.T) {
	c := New(5, roster.ByDiscoveryTime)
	list := numbered(20)
	c.Reconcile(list)
	for i := 0; i < 12; i++ {
		c.Move(Down)
	}
	sel, _ := c.Selected()
	before := c.SelectedIndex() - c.Offset()

	c.OnDevicesEvicted(4)
	c.Reconcile(list[4:])

	if got, _ := c.Selected(); got != sel {
		t.Errorf("Selected() = %q, want %q", got, sel)
	}
	if after := c.SelectedIndex() - c.Offset(); after != before {
		t.Errorf("selection row in window = %d, want %d", after, before)
	}
}

func TestToggleView(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.ToggleView()
	if c.View() != List {
		t.Errorf("ToggleView() without selection changed view to %v", c.View())
	}

	c.Reconcile(entries("a"))
	c.ToggleView()
	if c.View() != Detail {
		t.Errorf("View() = %v, want detail", c.View())
	}
	c.ToggleView()
	if c.View() != List {
		t.Errorf("View() = %v, want list", c.View())
	}

	c.ToggleView()
	c.ShowList()
	if c.View() != List {
		t.Errorf("ShowList() left view %v", c.View())
	}
}

func TestToggleSortMode_LeavesScrollAndSelection(t *testing.T) {
	c := New(5, roster.ByDiscoveryTime)
	c.Reconcile(numbered(20))
	for i := 0; i < 8; i++ {
		c.Move(Down)
	}
	sel, _ := c.Selected()
	off := c.Offset()

	c.ToggleSortMode()
	if c.SortMode() != roster.BySignalStrength {
		t.Errorf("SortMode() = %v, want signal", c.SortMode())
	}
	if got, _ := c.Selected(); got != sel || c.Offset() != off {
		t.Errorf("ToggleSortMode() changed selection/offset to %q/%d, want %q/%d", got, c.Offset(), sel, off)
	}
}

func TestSetContentHeight_KeepsSelectionVisible(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(numbered(25))
	for i := 0; i < 9; i++ {
		c.Move(Down)
	}
	c.SetContentHeight(4)
	start, end := c.Window()
	if idx := c.SelectedIndex(); idx < start || idx >= end {
		t.Errorf("selection %d outside window [%d, %d)", idx, start, end)
	}
	c.SetContentHeight(0)
	if c.ContentHeight() != 1 {
		t.Errorf("ContentHeight() = %d, want 1", c.ContentHeight())
	}
	assertBounds(t, c)
}

func TestWindow(t *testing.T) {
	c := New(10, roster.ByDiscoveryTime)
	c.Reconcile(numbered(4))
	if start, end := c.Window(); start != 0 || end != 4 {
		t.Errorf("Window() = [%d, %d), want [0, 4)", start, end)
	}
}
