package canvas

import "sync"

// SlotID is a participant's index into the board's in-progress drawings.
// Slots are handed out in registration order and never reused.
type SlotID int

// Board is the canvas state shared by all sessions.
//
// Each method holds the board lock for one logical operation only, so
// operations from different sessions interleave freely. Index-based
// operations that refer to an entry which no longer exists are no-ops.
type Board struct {
	mu sync.Mutex

	// completed holds finished drawings in insertion order.
	// Every entry has at least one point.
	completed []Drawing

	// inProgress holds exactly one drawing per registered participant.
	inProgress []Drawing

	// revision increments on every mutation.
	revision uint64
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{}
}

// Register reserves a new in-progress slot and returns its index.
func (b *Board) Register() SlotID {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := SlotID(len(b.inProgress))
	b.inProgress = append(b.inProgress, Drawing{})
	b.revision++
	return id
}

// Extend sets the pen of the slot's drawing and appends p to it.
// It reports false if slot was never registered.
func (b *Board) Extend(slot SlotID, pen Pen, p Point) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.validSlotLocked(slot) {
		return false
	}
	d := &b.inProgress[slot]
	d.Pen = pen
	d.Points = append(d.Points, p)
	b.revision++
	return true
}

// SetPen sets the pen of the slot's drawing without adding a point.
func (b *Board) SetPen(slot SlotID, pen Pen) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.validSlotLocked(slot) {
		return false
	}
	b.inProgress[slot].Pen = pen
	b.revision++
	return true
}

// Finish takes the slot's drawing, resets the slot to an empty drawing, and
// appends the taken drawing to the completed list. A drawing without points
// is discarded instead of completed. Finish reports whether a drawing was
// completed.
func (b *Board) Finish(slot SlotID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.validSlotLocked(slot) {
		return false
	}
	d := b.inProgress[slot]
	b.inProgress[slot] = Drawing{}
	if d.IsEmpty() {
		return false
	}
	b.completed = append(b.completed, d)
	b.revision++
	return true
}

// Clear resets the slot to an empty drawing without completing it.
// The slot itself stays reserved.
func (b *Board) Clear(slot SlotID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.validSlotLocked(slot) {
		return false
	}
	b.inProgress[slot] = Drawing{}
	b.revision++
	return true
}

// Delete removes the completed drawing at index, shifting later entries down
// by one. It reports false and changes nothing if index is out of range.
func (b *Board) Delete(index int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.completed) {
		return false
	}
	b.completed = append(b.completed[:index], b.completed[index+1:]...)
	b.revision++
	return true
}

// SetCompletedPen replaces the pen of the completed drawing at index.
// Concurrent edits of the same drawing resolve as last write wins.
func (b *Board) SetCompletedPen(index int, pen Pen) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.completed) {
		return false
	}
	b.completed[index].Pen = NewPen(pen.Color, pen.Width)
	b.revision++
	return true
}

// Highlight returns the bounding rectangle and pen of the completed drawing
// at index.
func (b *Board) Highlight(index int) (Highlight, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < 0 || index >= len(b.completed) {
		return Highlight{}, false
	}
	d := b.completed[index]
	return Highlight{Index: index, Rect: d.Bounds(), Pen: d.Pen}, true
}

// Snapshot is a point-in-time deep copy of a board.
type Snapshot struct {
	Completed  []Drawing
	InProgress []Drawing
}

// Snapshot copies the board under a single lock acquisition.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Snapshot{
		Completed:  make([]Drawing, len(b.completed)),
		InProgress: make([]Drawing, len(b.inProgress)),
	}
	for i, d := range b.completed {
		s.Completed[i] = d.Clone()
	}
	for i, d := range b.inProgress {
		s.InProgress[i] = d.Clone()
	}
	return s
}

// Completed returns a copy of the completed drawings.
func (b *Board) Completed() []Drawing {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Drawing, len(b.completed))
	for i, d := range b.completed {
		out[i] = d.Clone()
	}
	return out
}

// InProgress returns a copy of the slot's drawing.
func (b *Board) InProgress(slot SlotID) (Drawing, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.validSlotLocked(slot) {
		return Drawing{}, false
	}
	return b.inProgress[slot].Clone(), true
}

// Len returns the number of completed drawings.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.completed)
}

// Slots returns the number of slots ever registered.
func (b *Board) Slots() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.inProgress)
}

// Revision returns the board's mutation counter. It changes whenever a
// drawing is added, extended, restyled, finished, cleared or deleted.
func (b *Board) Revision() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.revision
}

func (b *Board) validSlotLocked(slot SlotID) bool {
	return slot >= 0 && int(slot) < len(b.inProgress)
}
