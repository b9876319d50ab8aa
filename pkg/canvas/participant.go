package canvas

// MaxPalette is the most pens a participant's palette holds.
const MaxPalette = 32

// Participant is the canvas state owned by one session.
// It is not safe for concurrent use.
type Participant struct {
	slot     SlotID
	hasID    bool
	palette  []Pen
	selected int
}

// NewParticipant returns an unregistered participant with the default palette:
// a single white pen one pixel wide.
func NewParticipant() *Participant {
	return &Participant{
		palette: []Pen{DefaultPen},
	}
}

// Slot returns the participant's board slot, if one has been assigned.
func (p *Participant) Slot() (SlotID, bool) {
	return p.slot, p.hasID
}

// Register assigns a board slot on first call and returns the same slot on
// every later call without touching the board again.
func (p *Participant) Register(b Shared) SlotID {
	if !p.hasID {
		p.slot = b.Register()
		p.hasID = true
	}
	return p.slot
}

// Palette returns a copy of the participant's pens.
func (p *Participant) Palette() []Pen {
	out := make([]Pen, len(p.palette))
	copy(out, p.palette)
	return out
}

// Selected returns the index of the selected pen.
func (p *Participant) Selected() int {
	return p.selected
}

// SelectedPen returns the currently selected pen.
func (p *Participant) SelectedPen() Pen {
	if p.selected < 0 || p.selected >= len(p.palette) {
		return DefaultPen
	}
	return p.palette[p.selected]
}

// SetPen replaces the palette pen at index. Out of range indexes are ignored.
func (p *Participant) SetPen(index int, pen Pen) bool {
	if index < 0 || index >= len(p.palette) {
		return false
	}
	p.palette[index] = NewPen(pen.Color, pen.Width)
	return true
}

// AddPen appends a pen to the palette and returns its index, or -1 when the
// palette already holds MaxPalette pens.
func (p *Participant) AddPen(pen Pen) int {
	if len(p.palette) >= MaxPalette {
		return -1
	}
	p.palette = append(p.palette, NewPen(pen.Color, pen.Width))
	return len(p.palette) - 1
}

// Select makes the pen at index the active one. Out of range indexes are
// ignored.
func (p *Participant) Select(index int) bool {
	if index < 0 || index >= len(p.palette) {
		return false
	}
	p.selected = index
	return true
}
