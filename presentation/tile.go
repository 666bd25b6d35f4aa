package presentation

import (
	"image"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"tilecls-go/domain/prediction"
	"tilecls-go/infrastructure/imaging"
)

// thumbnailScale caps decoded tile images relative to the tile minimum size.
const thumbnailScale = 2

// ResultTile is one grid cell: a picture and a caption.
// The caption starts as the file name and becomes the prediction text.
type ResultTile struct {
	widget.BaseWidget

	path    string
	minSize fyne.Size
	image   *canvas.Image
	caption *widget.Label
}

// NewResultTile creates an empty tile for path.
func NewResultTile(path string, minSize fyne.Size) *ResultTile {
	t := &ResultTile{
		path:    path,
		minSize: minSize,
		image:   canvas.NewImageFromImage(nil),
		caption: widget.NewLabel(filepath.Base(path)),
	}
	t.image.FillMode = canvas.ImageFillContain
	t.image.ScaleMode = canvas.ImageScaleSmooth
	t.image.SetMinSize(minSize)
	t.caption.Alignment = fyne.TextAlignCenter
	t.caption.Truncation = fyne.TextTruncateEllipsis
	t.ExtendBaseWidget(t)
	return t
}

// CreateRenderer implements fyne.Widget.
func (t *ResultTile) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewBorder(nil, t.caption, nil, nil, t.image))
}

// Path returns the image file shown by the tile.
func (t *ResultTile) Path() string {
	return t.path
}

// SetImage replaces the picture. img is downscaled to at most twice the tile size.
func (t *ResultTile) SetImage(img image.Image) {
	t.image.Image = tileImage(img, t.minSize)
	t.image.Refresh()
}

// Image returns the picture currently shown, or nil.
func (t *ResultTile) Image() image.Image {
	return t.image.Image
}

// ShowLoadError marks the tile as unreadable: "<name>\n<Erro>".
func (t *ResultTile) ShowLoadError() {
	t.caption.SetText(filepath.Base(t.path) + "\n<" + prediction.ErrorClass + ">")
}

// SetText replaces the caption.
func (t *ResultTile) SetText(text string) {
	t.caption.SetText(text)
}

// Text returns the caption.
func (t *ResultTile) Text() string {
	return t.caption.Text
}

// tileImage converts a decoded image for display in a tile of the given size.
func tileImage(img image.Image, size fyne.Size) image.Image {
	if img == nil {
		return nil
	}
	return imaging.Thumbnail(img, int(size.Width)*thumbnailScale, int(size.Height)*thumbnailScale)
}
