package ocr

import (
	"fmt"
	"image"
	"image/color"

	// register decoders used by imaging.Open / image.Decode
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/joseph-ayodele/ocr-service/internal/common"
)

// Page is one raster of a document, in source order.
type Page struct {
	Index int
	Image image.Image
}

// BGR is an 8-bit three channel raster stored blue, green, red.
type BGR struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
}

// NewBGR allocates a zeroed raster.
func NewBGR(r image.Rectangle) *BGR {
	return &BGR{Pix: make([]uint8, 3*r.Dx()*r.Dy()), Stride: 3 * r.Dx(), Rect: r}
}

func (p *BGR) ColorModel() color.Model { return color.RGBAModel }

func (p *BGR) Bounds() image.Rectangle { return p.Rect }

func (p *BGR) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	return color.RGBA{R: p.Pix[i+2], G: p.Pix[i+1], B: p.Pix[i], A: 0xff}
}

// PixOffset returns the index of the blue sample of (x, y).
func (p *BGR) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// ToBGR normalises a decoded image into the channel order the preprocessor
// expects. Single channel images are returned as *image.Gray; everything
// else becomes a *BGR with alpha flattened onto white.
func ToBGR(img image.Image) image.Image {
	switch src := img.(type) {
	case *BGR, *image.Gray:
		return src
	case *image.Gray16:
		dst := image.NewGray(src.Bounds())
		b := src.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.SetGray(x, y, color.GrayModel.Convert(src.Gray16At(x, y)).(color.Gray))
			}
		}
		return dst
	}

	b := img.Bounds()
	dst := NewBGR(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := dst.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			// premultiplied; adding the uncovered share of white flattens alpha
			r, g, bl, a := img.At(x, y).RGBA()
			bg := 0xffff - a
			dst.Pix[i+0] = uint8((bl + bg) >> 8)
			dst.Pix[i+1] = uint8((g + bg) >> 8)
			dst.Pix[i+2] = uint8((r + bg) >> 8)
			i += 3
		}
	}
	return dst
}

// DecodeImage opens an image file and normalises its channel order.
// Undecodable files are caller errors.
func DecodeImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, common.NewValidationError("The uploaded image could not be decoded.", fmt.Errorf("%w: %v", common.ErrCorruptDocument, err))
	}
	return ToBGR(img), nil
}
