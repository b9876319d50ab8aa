package canvas

// Drawing is a single stroke: an ordered point sequence drawn with one pen.
type Drawing struct {
	Points []Point
	Pen    Pen
}

// IsEmpty reports whether the drawing has no points.
func (d Drawing) IsEmpty() bool {
	return len(d.Points) == 0
}

// Clone returns a deep copy of d.
func (d Drawing) Clone() Drawing {
	c := Drawing{Pen: d.Pen}
	if len(d.Points) > 0 {
		c.Points = make([]Point, len(d.Points))
		copy(c.Points, d.Points)
	}
	return c
}

// Bounds returns the smallest rectangle containing every point of d.
// An empty drawing has an empty bounding rectangle.
func (d Drawing) Bounds() Rect {
	r := EmptyRect()
	for _, p := range d.Points {
		r = r.Extend(p)
	}
	return r
}

// Polyline converts the drawing into a renderable polyline using its own pen.
// The primitive shares the drawing's point slice.
func (d Drawing) Polyline() Primitive {
	return Primitive{
		Kind:   KindPolyline,
		Points: d.Points,
		Pen:    d.Pen,
	}
}
