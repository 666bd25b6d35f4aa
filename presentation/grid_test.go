package presentation

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/theme"
)

func TestColumnsFor(t *testing.T) {
	tests := []struct {
		width     float32
		tileWidth int
		want      int
	}{
		{900, 220, 4},
		{880, 220, 4},
		{879, 220, 3},
		{100, 220, 1},
		{0, 220, 1},
		{900, 0, 1},
		{900, -5, 1},
	}

	for _, tt := range tests {
		if got := ColumnsFor(tt.width, tt.tileWidth); got != tt.want {
			t.Errorf("ColumnsFor(%v, %d) = %d, want %d", tt.width, tt.tileWidth, got, tt.want)
		}
	}
}

func fixedRects(n int, size fyne.Size) []fyne.CanvasObject {
	objects := make([]fyne.CanvasObject, n)
	for i := range objects {
		r := canvas.NewRectangle(nil)
		r.SetMinSize(size)
		objects[i] = r
	}
	return objects
}

func TestTileGridLayout_Layout(t *testing.T) {
	l := newTileGridLayout(220)
	objects := fixedRects(5, fyne.NewSize(200, 150))
	pad := theme.Padding()

	l.Layout(objects, fyne.NewSize(660, 500))
	if l.cols != 3 {
		t.Fatalf("cols = %d, want 3", l.cols)
	}

	cellW := (660 - 2*pad) / 3
	if got := objects[0].Size(); got != fyne.NewSize(cellW, 150) {
		t.Errorf("cell size = %v, want %vx150", got, cellW)
	}
	if got := objects[2].Position(); got != fyne.NewPos(2*(cellW+pad), 0) {
		t.Errorf("objects[2] at %v", got)
	}
	if got := objects[3].Position(); got != fyne.NewPos(0, 150+pad) {
		t.Errorf("objects[3] at %v, want second row", got)
	}

	ms := l.MinSize(objects)
	if ms.Height != 2*150+pad {
		t.Errorf("MinSize height = %v, want two rows", ms.Height)
	}
	if ms.Width != 200 {
		t.Errorf("MinSize width = %v, want 200", ms.Width)
	}
}

func TestTileGridLayout_Empty(t *testing.T) {
	l := newTileGridLayout(220)
	l.Layout(nil, fyne.NewSize(900, 700))
	if l.cols != 4 {
		t.Errorf("cols = %d, want 4", l.cols)
	}
	if got := l.MinSize(nil); got != fyne.NewSize(0, 0) {
		t.Errorf("MinSize = %v, want 0x0", got)
	}
}

func TestTileGridLayout_NarrowSingleColumn(t *testing.T) {
	l := newTileGridLayout(220)
	objects := fixedRects(3, fyne.NewSize(200, 100))

	l.Layout(objects, fyne.NewSize(150, 400))
	if l.cols != 1 {
		t.Fatalf("cols = %d, want 1", l.cols)
	}
	if got := l.MinSize(objects).Height; got != 3*100+2*theme.Padding() {
		t.Errorf("MinSize height = %v", got)
	}
}
