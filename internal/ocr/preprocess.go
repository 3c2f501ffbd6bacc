package ocr

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/joseph-ayodele/ocr-service/internal/common"
)

// Preprocessing parameters. They are fixed and not request tunable.
const (
	// thresholdSigma is the gaussian sigma of an 11x11 adaptive window.
	thresholdSigma = 2.0
	thresholdC     = 2

	denoiseH       = 30.0
	templateWindow = 7
	searchWindow   = 21
)

var sharpenKernel = [9]float64{
	-1, -1, -1,
	-1, 9, -1,
	-1, -1, -1,
}

// Preprocess turns a page raster into a cleaned binary image for the
// recognizer: grayscale, adaptive gaussian threshold, non-local means
// denoise, sharpen. The input is not modified and the output has the same
// dimensions.
func Preprocess(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", common.ErrProcessing)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image %v", common.ErrProcessing, b)
	}

	gray := grayscale(img)
	binary := adaptiveThreshold(gray)
	denoised, err := denoiseNLMeans(binary, denoiseH, templateWindow, searchWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: denoise: %v", common.ErrProcessing, err)
	}
	return sharpen(denoised), nil
}

// grayscale uses BT.601 luma, the same weights as a BGR to gray conversion.
func grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(image.Rect(0, 0, g.Rect.Dx(), g.Rect.Dy()))
		for y := 0; y < out.Rect.Dy(); y++ {
			copy(out.Pix[y*out.Stride:y*out.Stride+out.Rect.Dx()], g.Pix[g.PixOffset(g.Rect.Min.X, g.Rect.Min.Y+y):])
		}
		return out
	}
	return fromNRGBA(imaging.Grayscale(img))
}

func adaptiveThreshold(src *image.Gray) *image.Gray {
	mean := fromNRGBA(imaging.Blur(src, thresholdSigma))
	dst := image.NewGray(src.Rect)
	for i, v := range src.Pix {
		if int(v) > int(mean.Pix[i])-thresholdC {
			dst.Pix[i] = 255
		}
	}
	return dst
}

func sharpen(src *image.Gray) *image.Gray {
	return fromNRGBA(imaging.Convolve3x3(src, sharpenKernel, nil))
}

// fromNRGBA keeps the red channel of a gray NRGBA produced by imaging.
func fromNRGBA(src *image.NRGBA) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			out[x] = row[x*4]
		}
	}
	return dst
}
