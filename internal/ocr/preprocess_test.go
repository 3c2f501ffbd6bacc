package ocr

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/joseph-ayodele/ocr-service/internal/common"
)

// textBlock is a white page with a dark rectangle standing in for a glyph.
func textBlock() *image.RGBA {
	img := solidRGBA(40, 20, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	for y := 6; y < 14; y++ {
		for x := 14; x < 26; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	return img
}

func TestPreprocessKeepsDimensions(t *testing.T) {
	src := ToBGR(textBlock())
	out, err := Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 20 {
		t.Fatalf("bounds = %v, want 40x20", out.Bounds())
	}
	if out.GrayAt(20, 10).Y >= 128 {
		t.Fatalf("glyph centre should stay dark, got %d", out.GrayAt(20, 10).Y)
	}
	if out.GrayAt(0, 0).Y != 255 {
		t.Fatalf("background should be white, got %d", out.GrayAt(0, 0).Y)
	}
}

func TestPreprocessWhitePage(t *testing.T) {
	out, err := Preprocess(solidGray(16, 16, 255))
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	for i, v := range out.Pix {
		if v != 255 {
			t.Fatalf("pixel %d = %d, want 255", i, v)
		}
	}
}

func TestPreprocessDeterministic(t *testing.T) {
	src := ToBGR(textBlock())
	a, err := Preprocess(src)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Preprocess(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("Preprocess() is not deterministic")
	}
}

func TestPreprocessDoesNotModifyInput(t *testing.T) {
	src := solidGray(8, 8, 90)
	before := append([]uint8(nil), src.Pix...)
	if _, err := Preprocess(src); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, src.Pix) {
		t.Fatal("input image was modified")
	}
}

func TestPreprocessRejectsEmpty(t *testing.T) {
	for _, img := range []image.Image{nil, image.NewGray(image.Rect(0, 0, 0, 5))} {
		if _, err := Preprocess(img); !errors.Is(err, common.ErrProcessing) {
			t.Fatalf("Preprocess(%v) error = %v, want ErrProcessing", img, err)
		}
	}
}

func TestDenoiseConstantImage(t *testing.T) {
	out, err := denoiseNLMeans(solidGray(50, 40, 100), denoiseH, templateWindow, searchWindow)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out.Pix {
		if v != 100 {
			t.Fatalf("pixel %d = %d, want 100", i, v)
		}
	}
}

func TestDenoiseRemovesIsolatedSpeck(t *testing.T) {
	src := solidGray(30, 30, 255)
	src.SetGray(15, 15, color.Gray{Y: 0})
	out, err := denoiseNLMeans(src, denoiseH, templateWindow, searchWindow)
	if err != nil {
		t.Fatal(err)
	}
	if out.GrayAt(15, 15).Y < 200 {
		t.Fatalf("speck survived denoise: %d", out.GrayAt(15, 15).Y)
	}
}

func TestReflect101(t *testing.T) {
	tests := []struct{ i, n, want int }{
		{0, 5, 0}, {4, 5, 4}, {-1, 5, 1}, {-2, 5, 2}, {5, 5, 3}, {6, 5, 2}, {-7, 5, 1}, {3, 1, 0},
	}
	for _, tt := range tests {
		if got := reflect101(tt.i, tt.n); got != tt.want {
			t.Errorf("reflect101(%d, %d) = %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}
