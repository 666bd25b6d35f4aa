package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// bannerOpacity is how strongly the black banner covers the picture.
	bannerOpacity = 0.6
	// bannerPadding is added to the text height to get the banner height.
	bannerPadding = 40
	// textTop is the distance from the top edge to the top of the text.
	textTop = 20
	// referenceTextHeight is the rendered text height, in pixels, at scale 1.
	referenceTextHeight = 22.0
)

// TextColor is the colour of the result text.
var TextColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

// TextScale returns the text scale for an image of the given width.
// Wider images get proportionally larger text, never below 0.7.
func TextScale(width int) float64 {
	return math.Max(0.7, float64(width)/500)
}

// Annotate returns a copy of img with a translucent black banner across the top
// and text centered on it. img is not modified.
func Annotate(img image.Image, text string) *image.NRGBA {
	if img == nil {
		return nil
	}
	out := imaging.Clone(img)
	b := out.Bounds()
	if b.Empty() {
		return out
	}
	width, height := b.Dx(), b.Dy()

	strip := RenderText(text, TextScale(width))
	textW, textH := 0, int(math.Round(referenceTextHeight*TextScale(width)))
	if strip != nil {
		textW, textH = strip.Bounds().Dx(), strip.Bounds().Dy()
	}

	bannerH := textH + bannerPadding
	if bannerH > height {
		bannerH = height
	}
	out = imaging.Overlay(out, imaging.New(width, bannerH, color.Black), image.Pt(0, 0), bannerOpacity)

	if strip == nil {
		return out
	}
	pos := image.Pt((width-textW)/2, textTop)
	return imaging.Overlay(out, strip, pos, 1.0)
}

// RenderText draws text in TextColor on a transparent strip whose height is
// about referenceTextHeight*scale pixels. Returns nil for empty text.
func RenderText(text string, scale float64) *image.NRGBA {
	if text == "" {
		return nil
	}

	face := basicfont.Face7x13
	metrics := face.Metrics()
	w := font.MeasureString(face, text).Ceil()
	h := metrics.Height.Ceil()
	if w <= 0 || h <= 0 {
		return nil
	}

	strip := image.NewNRGBA(image.Rect(0, 0, w, h))
	d := &font.Drawer{
		Dst:  strip,
		Src:  image.NewUniform(TextColor),
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(text)

	k := referenceTextHeight * scale / float64(h)
	sw := int(math.Max(1, math.Round(float64(w)*k)))
	sh := int(math.Max(1, math.Round(float64(h)*k)))
	return imaging.Resize(strip, sw, sh, imaging.Linear)
}
