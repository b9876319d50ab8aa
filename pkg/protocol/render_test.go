package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vango-go/scribble/pkg/canvas"
)

func TestRenderRoundTrip(t *testing.T) {
	blue := canvas.NewPen(canvas.RGBA(0, 0, 255, 255), 2)
	line := canvas.Drawing{
		Points: []canvas.Point{canvas.Pt(0, 0), canvas.Pt(10, 5), canvas.Pt(20, 0)},
		Pen:    blue,
	}
	hl := canvas.Highlight{Index: 0, Rect: line.Bounds(), Pen: canvas.DefaultPen}

	want := &Render{
		Seq:        42,
		Tab:        TabCanvas,
		Slot:       3,
		Primitives: []canvas.Primitive{line.Polyline(), hl.Primitive()},
		Rows:       []canvas.PanelRow{{Index: 0, Pen: blue, Points: 3}},
		Palette:    []canvas.Pen{canvas.DefaultPen, blue},
		Selected:   1,
	}

	got, err := DecodeRender(EncodeRender(want))
	if err != nil {
		t.Fatalf("DecodeRender() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeRender() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestRenderWelcome(t *testing.T) {
	want := &Render{
		Seq:        1,
		Tab:        TabWelcome,
		Text:       "Hello, client #1",
		Slot:       -1,
		Primitives: []canvas.Primitive{},
		Rows:       []canvas.PanelRow{},
		Palette:    []canvas.Pen{canvas.DefaultPen},
	}
	got, err := DecodeRender(EncodeRender(want))
	if err != nil {
		t.Fatalf("DecodeRender() error = %v", err)
	}
	if got.Text != want.Text || got.Slot != -1 || got.Tab != TabWelcome {
		t.Errorf("DecodeRender() = %+v", got)
	}
}

func TestDecodeRenderUnknownPrimitive(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(1)
	e.WriteByte(byte(TabCanvas))
	e.WriteString("")
	e.WriteSvarint(0)
	e.WriteUvarint(1)
	e.WriteByte(0x7F)
	e.WritePen(canvas.DefaultPen)
	e.WriteUvarint(0)

	if _, err := DecodeRender(e.Bytes()); !errors.Is(err, ErrUnknownPrimitive) {
		t.Errorf("DecodeRender() error = %v, want ErrUnknownPrimitive", err)
	}
}

func TestHelloRoundTrip(t *testing.T) {
	want := &Hello{SessionID: "3f1c", Number: 7, TickRate: 90}
	got, err := DecodeHello(EncodeHello(want))
	if err != nil {
		t.Fatalf("DecodeHello() error = %v", err)
	}
	if *got != *want {
		t.Errorf("DecodeHello() = %+v, want %+v", got, want)
	}
}
