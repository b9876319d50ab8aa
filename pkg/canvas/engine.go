package canvas

// Shared is the board surface Step needs. *Board implements it; tests may
// substitute their own.
type Shared interface {
	Register() SlotID
	Extend(slot SlotID, pen Pen, p Point) bool
	SetPen(slot SlotID, pen Pen) bool
	Finish(slot SlotID) bool
	Delete(index int) bool
	SetCompletedPen(index int, pen Pen) bool
	Highlight(index int) (Highlight, bool)
	Snapshot() Snapshot
}

var _ Shared = (*Board)(nil)

// PenEdit replaces the pen at Index.
type PenEdit struct {
	Index int
	Pen   Pen
}

// PaletteInput carries a session's edits to its own palette.
type PaletteInput struct {
	Edits  []PenEdit
	Add    []Pen
	Select *int
}

// PanelInput carries a session's actions on the completed-drawings list.
type PanelInput struct {
	// Edits change the pen of completed drawings.
	Edits []PenEdit

	// Hover is the index whose delete control is under the pointer.
	Hover *int

	// Delete is the index whose delete control was clicked.
	Delete *int
}

// PointerInput is the canvas interaction signal for one tick.
type PointerInput struct {
	// Dragging is true while a drag is active on the canvas.
	Dragging bool

	// Stopped is true on the tick a drag ends.
	Stopped bool

	// Pos is the pointer position, if known.
	Pos *Point

	// Path lists every dragged position since the previous tick, oldest
	// first. When set it takes precedence over Pos.
	Path []Point
}

// Input is everything one session did since its previous tick.
type Input struct {
	Palette PaletteInput
	Panel   PanelInput
	Pointer PointerInput
}

// PanelRow describes one completed drawing in the management list.
type PanelRow struct {
	Index  int
	Pen    Pen
	Points int
}

// Frame is one session's output for one tick.
type Frame struct {
	// Slot is the session's in-progress slot.
	Slot SlotID

	// Primitives are ordered bottom to top.
	Primitives []Primitive

	// Rows lists completed drawings for the management panel.
	Rows []PanelRow

	// Palette and Selected mirror the session's pen configuration.
	Palette  []Pen
	Selected int

	// Highlight is set when a delete control was hovered this tick.
	Highlight *Highlight

	// Completed reports whether this tick finished the session's drawing.
	Completed bool
}

// Step runs one tick of canvas interaction for one session.
//
// The steps run in a fixed order: slot registration, palette edits, the
// management panel (pen edits, hover highlight, deletion), pointer handling,
// and finally emission. The hover highlight is taken from the list as it was
// before this tick's deletion so the outline and the panel agree.
func Step(b Shared, p *Participant, in Input) Frame {
	slot := p.Register(b)

	applyPalette(p, in.Palette)

	var hl *Highlight
	if in.Panel.Hover != nil {
		if h, ok := b.Highlight(*in.Panel.Hover); ok {
			hl = &h
		}
	}
	for _, e := range in.Panel.Edits {
		b.SetCompletedPen(e.Index, e.Pen)
	}
	if in.Panel.Delete != nil {
		b.Delete(*in.Panel.Delete)
	}

	var completed bool
	if in.Pointer.Dragging {
		pen := p.SelectedPen()
		switch {
		case len(in.Pointer.Path) > 0:
			for _, pt := range in.Pointer.Path {
				b.Extend(slot, pen, pt)
			}
		case in.Pointer.Pos != nil:
			b.Extend(slot, pen, *in.Pointer.Pos)
		default:
			b.SetPen(slot, pen)
		}
	}
	if in.Pointer.Stopped {
		completed = b.Finish(slot)
	}

	snap := b.Snapshot()
	return Frame{
		Slot:       slot,
		Primitives: Emit(snap, hl),
		Rows:       Rows(snap),
		Palette:    p.Palette(),
		Selected:   p.Selected(),
		Highlight:  hl,
		Completed:  completed,
	}
}

// Emit lists the primitives for a snapshot: completed drawings, then
// in-progress drawings, then the highlight if there is one. Empty
// in-progress slots produce no primitive.
func Emit(s Snapshot, hl *Highlight) []Primitive {
	out := make([]Primitive, 0, len(s.Completed)+len(s.InProgress)+1)
	for _, d := range s.Completed {
		out = append(out, d.Polyline())
	}
	for _, d := range s.InProgress {
		if d.IsEmpty() {
			continue
		}
		out = append(out, d.Polyline())
	}
	if hl != nil {
		out = append(out, hl.Primitive())
	}
	return out
}

// Rows builds the management panel rows for a snapshot.
func Rows(s Snapshot) []PanelRow {
	rows := make([]PanelRow, len(s.Completed))
	for i, d := range s.Completed {
		rows[i] = PanelRow{Index: i, Pen: d.Pen, Points: len(d.Points)}
	}
	return rows
}

func applyPalette(p *Participant, in PaletteInput) {
	for _, e := range in.Edits {
		p.SetPen(e.Index, e.Pen)
	}
	for _, pen := range in.Add {
		p.AddPen(pen)
	}
	if in.Select != nil {
		p.Select(*in.Select)
	}
}
