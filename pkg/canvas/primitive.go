package canvas

// PrimitiveKind identifies the shape of a Primitive.
type PrimitiveKind uint8

const (
	KindPolyline PrimitiveKind = 0x01 // Open line through Points
	KindRect     PrimitiveKind = 0x02 // Stroked outline of Rect
)

// String returns the string representation of the primitive kind.
func (k PrimitiveKind) String() string {
	switch k {
	case KindPolyline:
		return "Polyline"
	case KindRect:
		return "Rect"
	default:
		return "Unknown"
	}
}

// Primitive is one drawable item handed to the rendering toolkit.
// Polylines use Points; rectangles use Rect. Both are stroked with Pen.
type Primitive struct {
	Kind   PrimitiveKind
	Points []Point
	Rect   Rect
	Pen    Pen
}

// Highlight is a transient outline drawn around a completed drawing while its
// delete control is hovered. It only lives for the tick that produced it.
type Highlight struct {
	Index int
	Rect  Rect
	Pen   Pen
}

// Primitive converts the highlight into a stroked rectangle.
func (h Highlight) Primitive() Primitive {
	return Primitive{
		Kind: KindRect,
		Rect: h.Rect,
		Pen:  h.Pen,
	}
}
