package canvas

import (
	"sync"
	"testing"
)

func drawn(points ...Point) Drawing {
	return Drawing{Points: points, Pen: DefaultPen}
}

// seed fills b with n completed drawings; drawing i starts at (i, i).
func seed(t *testing.T, b *Board, n int) {
	t.Helper()
	slot := b.Register()
	for i := 0; i < n; i++ {
		b.Extend(slot, DefaultPen, Pt(float32(i), float32(i)))
		if !b.Finish(slot) {
			t.Fatalf("Finish() for drawing %d returned false", i)
		}
	}
}

func TestBoardRegisterAssignsSequentialSlots(t *testing.T) {
	b := NewBoard()
	for want := 0; want < 3; want++ {
		if got := b.Register(); got != SlotID(want) {
			t.Fatalf("Register() = %d, want %d", got, want)
		}
	}
	if b.Slots() != 3 {
		t.Errorf("Slots() = %d, want 3", b.Slots())
	}
}

func TestBoardFinishMovesDrawing(t *testing.T) {
	b := NewBoard()
	slot := b.Register()
	pen := NewPen(RGBA(255, 0, 0, 255), 3)

	b.Extend(slot, pen, Pt(0, 0))
	b.Extend(slot, pen, Pt(10, 10))

	if !b.Finish(slot) {
		t.Fatal("Finish() = false, want true")
	}

	got := b.Completed()
	if len(got) != 1 {
		t.Fatalf("len(Completed()) = %d, want 1", len(got))
	}
	if len(got[0].Points) != 2 || got[0].Points[1] != Pt(10, 10) {
		t.Errorf("completed points = %v", got[0].Points)
	}
	if got[0].Pen != pen {
		t.Errorf("completed pen = %+v, want %+v", got[0].Pen, pen)
	}

	d, ok := b.InProgress(slot)
	if !ok || !d.IsEmpty() {
		t.Errorf("slot after Finish = %+v, %v; want empty", d, ok)
	}
}

func TestBoardFinishEmptyIsNoop(t *testing.T) {
	b := NewBoard()
	slot := b.Register()

	if b.Finish(slot) {
		t.Fatal("Finish() on empty slot = true, want false")
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}

	b.SetPen(slot, NewPen(Black, 4))
	if b.Finish(slot) {
		t.Fatal("Finish() on pen-only slot = true, want false")
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBoardUnknownSlot(t *testing.T) {
	b := NewBoard()
	if b.Extend(4, DefaultPen, Pt(1, 1)) {
		t.Error("Extend() on unregistered slot = true")
	}
	if b.Finish(-1) {
		t.Error("Finish() on negative slot = true")
	}
	if b.Clear(0) {
		t.Error("Clear() on unregistered slot = true")
	}
}

func TestBoardDeleteShiftsIndices(t *testing.T) {
	b := NewBoard()
	seed(t, b, 4)

	before := b.Completed()
	if !b.Delete(1) {
		t.Fatal("Delete(1) = false")
	}
	after := b.Completed()

	if len(after) != len(before)-1 {
		t.Fatalf("len after delete = %d, want %d", len(after), len(before)-1)
	}
	if after[1].Points[0] != before[2].Points[0] {
		t.Errorf("after[1] = %v, want former index 2 %v", after[1].Points, before[2].Points)
	}
}

func TestBoardDeleteOutOfRange(t *testing.T) {
	b := NewBoard()
	seed(t, b, 2)

	tests := []int{-1, 2, 100}
	for _, idx := range tests {
		if b.Delete(idx) {
			t.Errorf("Delete(%d) = true, want false", idx)
		}
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
}

func TestBoardSetCompletedPen(t *testing.T) {
	b := NewBoard()
	seed(t, b, 1)

	if !b.SetCompletedPen(0, Pen{Color: Black, Width: -5}) {
		t.Fatal("SetCompletedPen(0) = false")
	}
	got := b.Completed()[0].Pen
	if got.Color != Black || got.Width != 0 {
		t.Errorf("pen = %+v, want black with width clamped to 0", got)
	}
	if b.SetCompletedPen(3, DefaultPen) {
		t.Error("SetCompletedPen(3) = true, want false")
	}
}

func TestBoardHighlightBounds(t *testing.T) {
	b := NewBoard()
	slot := b.Register()
	for _, p := range []Point{Pt(5, 1), Pt(-2, 7), Pt(3, -4)} {
		b.Extend(slot, DefaultPen, p)
	}
	b.Finish(slot)

	h, ok := b.Highlight(0)
	if !ok {
		t.Fatal("Highlight(0) not found")
	}
	want := Rect{Min: Pt(-2, -4), Max: Pt(5, 7)}
	if h.Rect != want {
		t.Errorf("Highlight rect = %+v, want %+v", h.Rect, want)
	}
	if _, ok := b.Highlight(1); ok {
		t.Error("Highlight(1) found on single-entry board")
	}
}

func TestBoardSnapshotIsDeepCopy(t *testing.T) {
	b := NewBoard()
	seed(t, b, 1)

	snap := b.Snapshot()
	snap.Completed[0].Points[0] = Pt(99, 99)

	if b.Completed()[0].Points[0] == Pt(99, 99) {
		t.Error("mutating snapshot changed board")
	}
}

func TestBoardClearKeepsSlot(t *testing.T) {
	b := NewBoard()
	slot := b.Register()
	b.Extend(slot, DefaultPen, Pt(1, 1))

	if !b.Clear(slot) {
		t.Fatal("Clear() = false")
	}
	if b.Slots() != 1 {
		t.Errorf("Slots() = %d, want 1", b.Slots())
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBoardConcurrentParticipants(t *testing.T) {
	b := NewBoard()
	const participants = 16
	const strokes = 25

	var wg sync.WaitGroup
	for i := 0; i < participants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot := b.Register()
			for s := 0; s < strokes; s++ {
				b.Extend(slot, DefaultPen, Pt(float32(s), 0))
				b.Extend(slot, DefaultPen, Pt(float32(s), 1))
				b.Finish(slot)
				// Interleave deletions and reads from other goroutines.
				if s%5 == 0 {
					b.Delete(0)
				}
				_ = b.Snapshot()
			}
		}()
	}
	wg.Wait()

	if b.Slots() != participants {
		t.Errorf("Slots() = %d, want %d", b.Slots(), participants)
	}
	wantLen := participants*strokes - participants*(strokes/5)
	if b.Len() != wantLen {
		t.Errorf("Len() = %d, want %d", b.Len(), wantLen)
	}
	for i, d := range b.Completed() {
		if len(d.Points) != 2 {
			t.Fatalf("completed[%d] has %d points, want 2", i, len(d.Points))
		}
	}
}

func TestDrawingBoundsEmpty(t *testing.T) {
	if !(Drawing{}).Bounds().IsEmpty() {
		t.Error("Bounds() of empty drawing should be empty")
	}
	r := drawn(Pt(2, 3)).Bounds()
	if r.IsEmpty() || r.Width() != 0 || r.Height() != 0 {
		t.Errorf("Bounds() of single point = %+v, want zero-size rect", r)
	}
}

func TestNewPenClampsWidth(t *testing.T) {
	nan := float32(0)
	nan = nan / nan
	tests := []struct {
		in   float32
		want float32
	}{
		{1.5, 1.5},
		{0, 0},
		{-1, 0},
		{nan, 0},
	}
	for _, tt := range tests {
		if got := NewPen(White, tt.in).Width; got != tt.want {
			t.Errorf("NewPen(width=%v).Width = %v, want %v", tt.in, got, tt.want)
		}
	}
}
