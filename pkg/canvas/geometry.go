package canvas

import (
	"fmt"
	"math"
)

// Point is a position on the canvas in logical pixels.
type Point struct {
	X, Y float32
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float32) Point {
	return Point{X: x, Y: y}
}

// String returns the point formatted as "(x, y)".
func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Min returns the component-wise minimum of p and q.
func (p Point) Min(q Point) Point {
	return Point{X: min(p.X, q.X), Y: min(p.Y, q.Y)}
}

// Max returns the component-wise maximum of p and q.
func (p Point) Max(q Point) Point {
	return Point{X: max(p.X, q.X), Y: max(p.Y, q.Y)}
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	Min, Max Point
}

// EmptyRect returns the inverted rectangle that contains nothing.
// Extending it with a single point yields a zero-size rectangle at that point.
func EmptyRect() Rect {
	inf := float32(math.Inf(1))
	return Rect{
		Min: Point{X: inf, Y: inf},
		Max: Point{X: -inf, Y: -inf},
	}
}

// Extend grows r so it contains p.
func (r Rect) Extend(p Point) Rect {
	return Rect{Min: r.Min.Min(p), Max: r.Max.Max(p)}
}

// IsEmpty reports whether r contains no points.
func (r Rect) IsEmpty() bool {
	return r.Min.X > r.Max.X || r.Min.Y > r.Max.Y
}

// Width returns the horizontal extent of r, or 0 if r is empty.
func (r Rect) Width() float32 {
	if r.IsEmpty() {
		return 0
	}
	return r.Max.X - r.Min.X
}

// Height returns the vertical extent of r, or 0 if r is empty.
func (r Rect) Height() float32 {
	if r.IsEmpty() {
		return 0
	}
	return r.Max.Y - r.Min.Y
}

// Color is an sRGB color with straight alpha.
type Color struct {
	R, G, B, A uint8
}

// Common colors.
var (
	White = Color{R: 255, G: 255, B: 255, A: 255}
	Black = Color{A: 255}
)

// RGBA returns an opaque-or-not color from its components.
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// Pen is a stroke style. Width is never negative.
type Pen struct {
	Color Color
	Width float32
}

// DefaultPen is the pen every new participant starts with.
var DefaultPen = Pen{Color: White, Width: 1}

// NewPen returns a pen with the given color and width, clamping the width to
// zero when it is negative or not a number.
func NewPen(c Color, width float32) Pen {
	return Pen{Color: c, Width: clampWidth(width)}
}

// WithWidth returns a copy of p using the given width, clamped like NewPen.
func (p Pen) WithWidth(width float32) Pen {
	p.Width = clampWidth(width)
	return p
}

func clampWidth(w float32) float32 {
	if w != w || w < 0 { // NaN or negative
		return 0
	}
	return w
}
