package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/vango-go/scribble/pkg/canvas"
)

// Allocation limits against malicious length prefixes.
const (
	// MaxStringLength bounds decoded strings (64KB).
	MaxStringLength = 64 * 1024

	// MaxCollectionCount bounds the item count of any decoded list.
	MaxCollectionCount = 100_000
)

// Common decoding errors.
var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
)

// Decoder reads binary values from a byte slice.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBool reads a byte and reports whether it is non-zero.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	return b != 0, err
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// ReadSvarint reads a ZigZag-encoded signed varint.
func (d *Decoder) ReadSvarint() (int64, error) {
	v, n := binary.Varint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// ReadUint16 reads a big-endian uint16.
func (d *Decoder) ReadUint16() (uint16, error) {
	if d.Remaining() < 2 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

// ReadUint64 reads a big-endian uint64.
func (d *Decoder) ReadUint64() (uint64, error) {
	if d.Remaining() < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint64(d.buf[d.pos:])
	d.pos += 8
	return v, nil
}

// ReadFloat32 reads a float32 in IEEE 754 format (big-endian).
func (d *Decoder) ReadFloat32() (float32, error) {
	if d.Remaining() < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(d.buf[d.pos:]))
	d.pos += 4
	return v, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > MaxStringLength {
		return "", ErrAllocationTooLarge
	}
	if length > uint64(d.Remaining()) {
		return "", io.ErrUnexpectedEOF
	}
	n := int(length)
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

// ReadCount reads a collection length whose items each occupy at least
// minItemSize bytes, rejecting counts the remaining buffer cannot hold.
func (d *Decoder) ReadCount(minItemSize int) (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if minItemSize < 1 {
		minItemSize = 1
	}
	if count*uint64(minItemSize) > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}

// ReadIndex reads a varint index that must fit in an int.
func (d *Decoder) ReadIndex() (int, error) {
	v, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt32 {
		return 0, ErrAllocationTooLarge
	}
	return int(v), nil
}

// ReadPoint reads two float32 coordinates.
func (d *Decoder) ReadPoint() (canvas.Point, error) {
	x, err := d.ReadFloat32()
	if err != nil {
		return canvas.Point{}, err
	}
	y, err := d.ReadFloat32()
	if err != nil {
		return canvas.Point{}, err
	}
	return canvas.Point{X: x, Y: y}, nil
}

// ReadColor reads four RGBA bytes.
func (d *Decoder) ReadColor() (canvas.Color, error) {
	if d.Remaining() < 4 {
		return canvas.Color{}, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+4]
	d.pos += 4
	return canvas.Color{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}

// ReadPen reads a color and width. Negative widths are clamped to zero.
func (d *Decoder) ReadPen() (canvas.Pen, error) {
	c, err := d.ReadColor()
	if err != nil {
		return canvas.Pen{}, err
	}
	w, err := d.ReadFloat32()
	if err != nil {
		return canvas.Pen{}, err
	}
	return canvas.NewPen(c, w), nil
}
