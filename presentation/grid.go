package presentation

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// ColumnsFor returns how many tiles of tileWidth fit across width, at least one.
func ColumnsFor(width float32, tileWidth int) int {
	if tileWidth <= 0 {
		return 1
	}
	return max(1, int(width)/tileWidth)
}

// tileGridLayout arranges tiles left to right, wrapping by ColumnsFor.
// Rows are as tall as the tallest tile minimum.
type tileGridLayout struct {
	tileWidth int
	cols      int
}

func newTileGridLayout(tileWidth int) *tileGridLayout {
	return &tileGridLayout{tileWidth: tileWidth, cols: 1}
}

// Layout implements fyne.Layout.
func (l *tileGridLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	l.cols = ColumnsFor(size.Width, l.tileWidth)
	if len(objects) == 0 {
		return
	}

	pad := theme.Padding()
	cellW := (size.Width - pad*float32(l.cols-1)) / float32(l.cols)
	cellH := l.rowHeight(objects)

	for i, o := range objects {
		row, col := i/l.cols, i%l.cols
		o.Move(fyne.NewPos(float32(col)*(cellW+pad), float32(row)*(cellH+pad)))
		o.Resize(fyne.NewSize(cellW, cellH))
	}
}

// MinSize implements fyne.Layout. The height uses the column count from the
// last Layout call, so a scroll container sees the wrapped height.
func (l *tileGridLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	if len(objects) == 0 {
		return fyne.NewSize(0, 0)
	}

	var minW float32
	for _, o := range objects {
		minW = max(minW, o.MinSize().Width)
	}

	rows := (len(objects) + l.cols - 1) / l.cols
	cellH := l.rowHeight(objects)
	pad := theme.Padding()
	return fyne.NewSize(minW, float32(rows)*cellH+float32(rows-1)*pad)
}

func (l *tileGridLayout) rowHeight(objects []fyne.CanvasObject) float32 {
	var h float32
	for _, o := range objects {
		h = max(h, o.MinSize().Height)
	}
	return h
}
