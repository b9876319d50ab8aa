package protocol

import (
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/vango-go/scribble/pkg/canvas"
)

func intPtr(i int) *int { return &i }

func TestInputRoundTrip(t *testing.T) {
	pos := canvas.Pt(12.5, -3)
	red := canvas.NewPen(canvas.RGBA(255, 0, 0, 255), 4)

	tests := []struct {
		name string
		in   canvas.Input
	}{
		{name: "empty", in: canvas.Input{}},
		{
			name: "drag",
			in:   canvas.Input{Pointer: canvas.PointerInput{Dragging: true, Pos: &pos}},
		},
		{
			name: "stop",
			in:   canvas.Input{Pointer: canvas.PointerInput{Stopped: true}},
		},
		{
			name: "panel",
			in: canvas.Input{Panel: canvas.PanelInput{
				Hover:  intPtr(2),
				Delete: intPtr(0),
				Edits:  []canvas.PenEdit{{Index: 1, Pen: red}},
			}},
		},
		{
			name: "palette",
			in: canvas.Input{Palette: canvas.PaletteInput{
				Edits:  []canvas.PenEdit{{Index: 0, Pen: canvas.DefaultPen.WithWidth(3)}},
				Add:    []canvas.Pen{red, canvas.DefaultPen},
				Select: intPtr(1),
			}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeInput(EncodeInput(&tc.in))
			if err != nil {
				t.Fatalf("DecodeInput() error = %v", err)
			}
			if !reflect.DeepEqual(*got, tc.in) {
				t.Errorf("DecodeInput() = %+v, want %+v", *got, tc.in)
			}
		})
	}
}

func TestDecodeInputRejectsHugeCount(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(0)
	e.WriteUvarint(MaxCollectionCount + 1)
	if _, err := DecodeInput(e.Bytes()); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("DecodeInput() error = %v, want ErrCollectionTooLarge", err)
	}
}

func TestDecodeInputCountBeyondBuffer(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(0)
	e.WriteUvarint(50) // 50 edits announced, none present
	if _, err := DecodeInput(e.Bytes()); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("DecodeInput() error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestDecodeInputTruncated(t *testing.T) {
	pos := canvas.Pt(1, 2)
	data := EncodeInput(&canvas.Input{Pointer: canvas.PointerInput{Dragging: true, Pos: &pos}})
	for n := 0; n < len(data); n++ {
		if _, err := DecodeInput(data[:n]); err == nil {
			t.Errorf("DecodeInput(%d of %d bytes) error = nil", n, len(data))
		}
	}
}

func TestTabCodec(t *testing.T) {
	for _, tab := range []Tab{TabWelcome, TabCanvas} {
		got, err := DecodeTab(EncodeTab(tab))
		if err != nil {
			t.Fatalf("DecodeTab(%v) error = %v", tab, err)
		}
		if got != tab {
			t.Errorf("DecodeTab() = %v, want %v", got, tab)
		}
	}
	if _, err := DecodeTab([]byte{9}); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("DecodeTab(9) error = %v, want ErrUnknownTab", err)
	}
	if _, err := DecodeTab(nil); err == nil {
		t.Error("DecodeTab(nil) error = nil")
	}
}
