package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// DefaultInputSize is the square side length the classifier expects.
const DefaultInputSize = 160

// Preprocess converts img into the classifier input: a size x size RGB image
// scaled to [0, 1], laid out as NHWC float32 with a batch dimension of one.
// Alpha is discarded, not composited.
func Preprocess(img image.Image, size int) ([]float32, error) {
	dst := make([]float32, size*size*3)
	if err := PreprocessInto(img, size, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// PreprocessInto writes the classifier input for img into dst.
// dst must hold at least size*size*3 values.
func PreprocessInto(img image.Image, size int, dst []float32) error {
	if img == nil || img.Bounds().Empty() {
		return ErrEmptyImage
	}
	if size <= 0 {
		return fmt.Errorf("invalid input size %d", size)
	}
	if len(dst) < size*size*3 {
		return fmt.Errorf("destination holds %d floats, needs %d", len(dst), size*size*3)
	}

	resized := resize.Resize(uint(size), uint(size), opaque(img), resize.Bilinear)
	b := resized.Bounds()

	i := 0
	for y := b.Min.Y; y < b.Min.Y+size; y++ {
		for x := b.Min.X; x < b.Min.X+size; x++ {
			r, g, bl, _ := resized.At(x, y).RGBA()
			dst[i] = float32(r>>8) / 255.0
			dst[i+1] = float32(g>>8) / 255.0
			dst[i+2] = float32(bl>>8) / 255.0
			i += 3
		}
	}
	return nil
}

// opaque returns an NRGBA copy of img with every alpha set to 255,
// keeping the stored colour of translucent pixels.
func opaque(img image.Image) *image.NRGBA {
	n := imaging.Clone(img)
	for i := 3; i < len(n.Pix); i += 4 {
		n.Pix[i] = 0xff
	}
	return n
}
