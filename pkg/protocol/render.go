package protocol

import (
	"errors"

	"github.com/vango-go/scribble/pkg/canvas"
)

// Render decoding errors.
var (
	ErrUnknownPrimitive = errors.New("protocol: unknown primitive kind")
	ErrUnknownTab       = errors.New("protocol: unknown tab")
)

// Render is the server's output for one session and one tick.
type Render struct {
	Seq uint64
	Tab Tab

	// Text is the body of the welcome tab.
	Text string

	// Slot is the session's board slot, or -1 before registration.
	Slot int

	Primitives []canvas.Primitive
	Rows       []canvas.PanelRow
	Palette    []canvas.Pen
	Selected   int
}

// EncodeRender encodes a render message.
func EncodeRender(r *Render) []byte {
	e := NewEncoder()
	EncodeRenderTo(e, r)
	return e.Bytes()
}

// EncodeRenderTo encodes a render message using the provided encoder.
func EncodeRenderTo(e *Encoder, r *Render) {
	e.WriteUvarint(r.Seq)
	e.WriteByte(byte(r.Tab))
	e.WriteString(r.Text)
	e.WriteSvarint(int64(r.Slot))

	e.WriteUvarint(uint64(len(r.Primitives)))
	for i := range r.Primitives {
		encodePrimitive(e, &r.Primitives[i])
	}

	e.WriteUvarint(uint64(len(r.Rows)))
	for _, row := range r.Rows {
		e.WriteUvarint(uint64(row.Index))
		e.WritePen(row.Pen)
		e.WriteUvarint(uint64(row.Points))
	}

	e.WriteUvarint(uint64(len(r.Palette)))
	for _, p := range r.Palette {
		e.WritePen(p)
	}
	e.WriteUvarint(uint64(r.Selected))
}

func encodePrimitive(e *Encoder, p *canvas.Primitive) {
	e.WriteByte(byte(p.Kind))
	e.WritePen(p.Pen)
	switch p.Kind {
	case canvas.KindPolyline:
		e.WriteUvarint(uint64(len(p.Points)))
		for _, pt := range p.Points {
			e.WritePoint(pt)
		}
	case canvas.KindRect:
		e.WritePoint(p.Rect.Min)
		e.WritePoint(p.Rect.Max)
	}
}

// DecodeRender decodes a render message.
func DecodeRender(data []byte) (*Render, error) {
	return DecodeRenderFrom(NewDecoder(data))
}

// DecodeRenderFrom decodes a render message from a decoder.
func DecodeRenderFrom(d *Decoder) (*Render, error) {
	r := &Render{}
	var err error

	if r.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	tab, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	r.Tab = Tab(tab)
	if r.Text, err = d.ReadString(); err != nil {
		return nil, err
	}
	slot, err := d.ReadSvarint()
	if err != nil {
		return nil, err
	}
	r.Slot = int(slot)

	n, err := d.ReadCount(1 + penSize)
	if err != nil {
		return nil, err
	}
	r.Primitives = make([]canvas.Primitive, n)
	for i := range r.Primitives {
		if err := decodePrimitive(d, &r.Primitives[i]); err != nil {
			return nil, err
		}
	}

	if n, err = d.ReadCount(1 + penSize + 1); err != nil {
		return nil, err
	}
	r.Rows = make([]canvas.PanelRow, n)
	for i := range r.Rows {
		row := &r.Rows[i]
		if row.Index, err = d.ReadIndex(); err != nil {
			return nil, err
		}
		if row.Pen, err = d.ReadPen(); err != nil {
			return nil, err
		}
		if row.Points, err = d.ReadIndex(); err != nil {
			return nil, err
		}
	}

	if n, err = d.ReadCount(penSize); err != nil {
		return nil, err
	}
	r.Palette = make([]canvas.Pen, n)
	for i := range r.Palette {
		if r.Palette[i], err = d.ReadPen(); err != nil {
			return nil, err
		}
	}
	if r.Selected, err = d.ReadIndex(); err != nil {
		return nil, err
	}
	return r, nil
}

func decodePrimitive(d *Decoder, p *canvas.Primitive) error {
	kind, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Kind = canvas.PrimitiveKind(kind)
	if p.Pen, err = d.ReadPen(); err != nil {
		return err
	}

	switch p.Kind {
	case canvas.KindPolyline:
		n, err := d.ReadCount(8)
		if err != nil {
			return err
		}
		p.Points = make([]canvas.Point, n)
		for i := range p.Points {
			if p.Points[i], err = d.ReadPoint(); err != nil {
				return err
			}
		}
	case canvas.KindRect:
		if p.Rect.Min, err = d.ReadPoint(); err != nil {
			return err
		}
		if p.Rect.Max, err = d.ReadPoint(); err != nil {
			return err
		}
	default:
		return ErrUnknownPrimitive
	}
	return nil
}

// Hello is sent once when a session is accepted.
type Hello struct {
	SessionID string
	Number    uint64  // participant number, counting from 1
	TickRate  float32 // ticks per second
}

// EncodeHello encodes a Hello message.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder()
	e.WriteString(h.SessionID)
	e.WriteUvarint(h.Number)
	e.WriteFloat32(h.TickRate)
	return e.Bytes()
}

// DecodeHello decodes a Hello message.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)
	h := &Hello{}
	var err error
	if h.SessionID, err = d.ReadString(); err != nil {
		return nil, err
	}
	if h.Number, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	if h.TickRate, err = d.ReadFloat32(); err != nil {
		return nil, err
	}
	return h, nil
}
