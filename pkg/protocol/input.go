package protocol

import (
	"github.com/vango-go/scribble/pkg/canvas"
)

// Input flag bits, first byte of an input payload.
const (
	inputDragging uint8 = 1 << iota
	inputStopped
	inputHasPos
	inputHasHover
	inputHasDelete
	inputHasSelect
)

// Minimum encoded sizes used to bound decoded counts.
const (
	penSize     = 8 // 4 color bytes + float32 width
	penEditSize = 1 + penSize
)

// EncodeInput encodes one client input message.
//
// Layout:
//
//	flags          byte
//	pos            2×float32       (if inputHasPos)
//	hover          uvarint         (if inputHasHover)
//	delete         uvarint         (if inputHasDelete)
//	select         uvarint         (if inputHasSelect)
//	palette edits  count, {index, pen}...
//	palette adds   count, {pen}...
//	panel edits    count, {index, pen}...
func EncodeInput(in *canvas.Input) []byte {
	e := NewEncoder()
	EncodeInputTo(e, in)
	return e.Bytes()
}

// EncodeInputTo encodes an input message using the provided encoder.
func EncodeInputTo(e *Encoder, in *canvas.Input) {
	var flags uint8
	if in.Pointer.Dragging {
		flags |= inputDragging
	}
	if in.Pointer.Stopped {
		flags |= inputStopped
	}
	if in.Pointer.Pos != nil {
		flags |= inputHasPos
	}
	if in.Panel.Hover != nil {
		flags |= inputHasHover
	}
	if in.Panel.Delete != nil {
		flags |= inputHasDelete
	}
	if in.Palette.Select != nil {
		flags |= inputHasSelect
	}
	e.WriteByte(flags)

	if in.Pointer.Pos != nil {
		e.WritePoint(*in.Pointer.Pos)
	}
	if in.Panel.Hover != nil {
		e.WriteUvarint(uint64(*in.Panel.Hover))
	}
	if in.Panel.Delete != nil {
		e.WriteUvarint(uint64(*in.Panel.Delete))
	}
	if in.Palette.Select != nil {
		e.WriteUvarint(uint64(*in.Palette.Select))
	}

	writeEdits(e, in.Palette.Edits)
	e.WriteUvarint(uint64(len(in.Palette.Add)))
	for _, p := range in.Palette.Add {
		e.WritePen(p)
	}
	writeEdits(e, in.Panel.Edits)
}

// DecodeInput decodes one client input message.
func DecodeInput(data []byte) (*canvas.Input, error) {
	return DecodeInputFrom(NewDecoder(data))
}

// DecodeInputFrom decodes an input message from a decoder.
func DecodeInputFrom(d *Decoder) (*canvas.Input, error) {
	flags, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	in := &canvas.Input{}
	in.Pointer.Dragging = flags&inputDragging != 0
	in.Pointer.Stopped = flags&inputStopped != 0

	if flags&inputHasPos != 0 {
		p, err := d.ReadPoint()
		if err != nil {
			return nil, err
		}
		in.Pointer.Pos = &p
	}
	if flags&inputHasHover != 0 {
		if in.Panel.Hover, err = readIndexPtr(d); err != nil {
			return nil, err
		}
	}
	if flags&inputHasDelete != 0 {
		if in.Panel.Delete, err = readIndexPtr(d); err != nil {
			return nil, err
		}
	}
	if flags&inputHasSelect != 0 {
		if in.Palette.Select, err = readIndexPtr(d); err != nil {
			return nil, err
		}
	}

	if in.Palette.Edits, err = readEdits(d); err != nil {
		return nil, err
	}
	n, err := d.ReadCount(penSize)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		in.Palette.Add = make([]canvas.Pen, n)
		for i := range in.Palette.Add {
			if in.Palette.Add[i], err = d.ReadPen(); err != nil {
				return nil, err
			}
		}
	}
	if in.Panel.Edits, err = readEdits(d); err != nil {
		return nil, err
	}
	return in, nil
}

func writeEdits(e *Encoder, edits []canvas.PenEdit) {
	e.WriteUvarint(uint64(len(edits)))
	for _, ed := range edits {
		e.WriteUvarint(uint64(ed.Index))
		e.WritePen(ed.Pen)
	}
}

func readEdits(d *Decoder) ([]canvas.PenEdit, error) {
	n, err := d.ReadCount(penEditSize)
	if err != nil || n == 0 {
		return nil, err
	}
	edits := make([]canvas.PenEdit, n)
	for i := range edits {
		if edits[i].Index, err = d.ReadIndex(); err != nil {
			return nil, err
		}
		if edits[i].Pen, err = d.ReadPen(); err != nil {
			return nil, err
		}
	}
	return edits, nil
}

func readIndexPtr(d *Decoder) (*int, error) {
	i, err := d.ReadIndex()
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Tab identifies the view a session is looking at.
type Tab uint8

const (
	TabWelcome Tab = 0x00
	TabCanvas  Tab = 0x01
)

// String returns the string representation of the tab.
func (t Tab) String() string {
	switch t {
	case TabWelcome:
		return "Welcome"
	case TabCanvas:
		return "Canvas"
	default:
		return "Unknown"
	}
}

// EncodeTab encodes a tab switch.
func EncodeTab(t Tab) []byte {
	return []byte{byte(t)}
}

// DecodeTab decodes a tab switch, rejecting unknown tabs.
func DecodeTab(data []byte) (Tab, error) {
	d := NewDecoder(data)
	b, err := d.ReadByte()
	if err != nil {
		return 0, err
	}
	t := Tab(b)
	if t > TabCanvas {
		return 0, ErrUnknownTab
	}
	return t, nil
}
